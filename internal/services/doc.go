// Package services holds the controller layer between the views (the CLI and
// the HTTP handlers) and the dataset model.
//
// SessionService owns the loaded dataset and its undo history. Every mutating
// call runs as the single in-flight operation: a second call made while one
// is running fails immediately with a BUSY error rather than queueing. A
// failed operation leaves both the dataset and the history untouched.
//
// State changes are announced to an EventPublisher (the websocket hub) as
// dataset.loaded, dataset.modified, history.changed, dataset.saved and
// chart.exported events.
//
// Example usage:
//
//	session := services.NewSessionService(services.SessionDeps{
//	    Loader:    loader,
//	    Processor: processor,
//	    Exporter:  exp,
//	    Publisher: hub,
//	    Logger:    logger,
//	})
//	info, err := session.Open(ctx, "measurements.xlsx")
//	sel := dataset.Selection{Columns: []string{"Seconds"}, Rows: dataset.RowRange{Start: 0, End: info.Rows - 1}}
//	result, err := session.Convert(ctx, sel, "second", "minute")
//	undone, err := session.Undo(ctx)
package services
