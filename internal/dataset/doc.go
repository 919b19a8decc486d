// Package dataset loads study records from delimited text tables.
//
// The expected header is
//
//	author,year,n_tx,n_cont,m_tx,m_cont,sd_tx,sd_cont
//
// with one row per primary study. Loading is fail-fast: a malformed or
// missing field aborts the whole load with a row-numbered error and no
// partial study set is ever returned.
package dataset
