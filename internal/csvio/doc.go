// Package csvio imports and exports transaction history as CSV.
//
// Import is deliberately forgiving: the delimiter is sniffed (comma or
// semicolon), columns are located by fuzzy header matching with a fixed
// fallback layout for headerless files, and rows missing a parseable
// date or amount are skipped rather than failing the whole file.
// Referenced books, accounts and categories that do not exist yet are
// created on the fly, so a bank export can seed an empty wallet.
//
// Export writes the same column layout the import understands, so a
// round trip through export and import is lossless for the fields both
// sides carry.
package csvio
