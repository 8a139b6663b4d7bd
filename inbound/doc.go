// Package inbound accepts raw connector deliveries, verifies and
// deduplicates them, parses them through the registered connector handler,
// and hands the resulting message to the processing pipeline.
package inbound
