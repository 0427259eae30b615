// Package ledger maintains the delivery spreadsheet (GRD) of a discipline
// directory.
//
// The workbook has one row per document lineage and one column per delivery,
// newest first, right after the Document and Extension columns. Each cell
// holds the delivered filename, a fill color for its status (new, revised,
// changed without a revision bump, unchanged) and a hyperlink to the delivery
// folder. Rows are never removed: a lineage that stops being delivered keeps
// its row as an audit trail.
//
// Workbooks are read and written with excelize.
package ledger
