// Package oteladapters implements the bookstore observability interfaces on top of OpenTelemetry.
//
// The service wires them into the postgresengine.BookStore when an OTLP endpoint is configured:
//
//	store, err := postgresengine.NewBookStoreFromPGXPool(pool,
//		postgresengine.WithMetrics(oteladapters.NewMetricsCollector(meterProvider.Meter("book-service"))),
//		postgresengine.WithTracing(oteladapters.NewTracingCollector(tracerProvider.Tracer("book-service"))),
//		postgresengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("book-service")),
//	)
package oteladapters
