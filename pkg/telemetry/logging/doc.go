// Package logging builds the process logger on top of log/slog.
//
// # Overview
//
//   - JSON or text output, selected by configuration
//   - Exchange IDs carried in the context and added to every record logged
//     with a *Context method
//   - Redaction of configured query and form fields (api_token by default)
//     in every string attribute
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stdout)
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithExchangeID(ctx, id)
//	slog.InfoContext(ctx, "exchange completed", "uri", "/api?api_token=abc")
//	// {"msg":"exchange completed","uri":"/api?api_token=***","exchange_id":"..."}
package logging
