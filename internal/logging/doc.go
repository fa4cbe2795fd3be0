// Package logging provides structured logging with OpenTelemetry integration.
//
// Logging wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Console output (stdout, or stderr for stdio transports) plus an
//     optional OpenTelemetry log bridge
//   - Context field injection (trace_id, client, session.id, request.id)
//   - Redaction of credentials, emails and phone numbers
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, otelProvider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithSessionID(ctx, sess.ID)
//	logger.Info(ctx, "document opened", zap.Int("spans", n))
//
// Domain packages take a *zap.Logger; pass logger.Underlying().
//
// # Configuration
//
// Configuration follows the config package precedence: defaults, then
// config.yaml, then CLAUSEMARK_LOGGING_* environment variables.
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertNoSecrets(t)
package logging
