// Package http implements the HTTP handlers of the datamod server. Handlers
// are thin: they decode and validate the request, call the session, units or
// health service and render the result as JSON.
//
// # Routes
//
//	GET  /api/health, /api/health/ready, /api/health/live, /api/version
//	GET  /api/units, /api/units/factor?from=&to=
//	GET  /api/files?location=data|exports
//	GET  /api/session                    current dataset
//	POST /api/session/open               {"path": ...}
//	POST /api/session/apply              {"selection": {...}, "operation": {...}}
//	POST /api/session/preview            same body as apply, nothing is committed
//	POST /api/session/convert            {"selection": {...}, "from": ..., "to": ...}
//	POST /api/session/undo, redo, reset
//	GET  /api/session/history
//	GET  /api/session/stats?column=&rows=start:end, or &start=&end=
//	GET  /api/session/rows?offset=&limit=&original=
//	POST /api/session/save               {"path": ..., "format": ..., "timestamp": ..., "bom": ...}
//	POST /api/session/chart              {"path": ..., "column": ..., "rows": {...}, "options": {...}}
//
// A selection without columns covers every column; without rows it covers
// every row.
//
// # Error Handling
//
// Every failure is written by errors.ErrorHandler as RFC 7807 problem
// details:
//
//	{
//	    "type": "/errors/session/no-dataset",
//	    "title": "No Dataset Loaded",
//	    "status": 409,
//	    "detail": "no dataset is loaded",
//	    "trace_id": "..."
//	}
//
// Request structs are validated with go-playground/validator tags; field
// failures are reported together with status 400. Domain validation
// failures such as a row range outside the table return 422, and a request
// arriving while another operation runs returns 409.
package http
