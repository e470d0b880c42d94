// Package files lists the files a user can open from the data directory and
// the tables and charts already written to the exports directory.
//
// Example usage:
//
//	discovery := files.NewDiscovery(paths)
//	tables, err := discovery.List(files.LocationData)
//	latest, ok := files.GetLatestFile(tables)
package files
