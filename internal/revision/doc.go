// Package revision parses document identity from filenames and orders
// revision labels.
//
// A filename such as "Doc_A1-R01.dwg" is split into a base name
// ("Doc-A1"), a revision ("R01") and an extension (".dwg"). All revisions
// of the same document share a Key, which identifies the document lineage.
package revision
