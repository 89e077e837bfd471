// Package tabular reads and writes core.Dataset values as CSV, TSV,
// Parquet and JSON Lines files.
//
// Reading always takes a Schema naming the columns to load and their
// types; nothing is inferred from the data. Writing infers each column's
// type from the values it holds and names columns by the flat field
// rendering, so ("Non Nutrient Data", "Name") becomes
// "Non Nutrient Data/Name".
package tabular
