package tracing

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys used across the coordination substrate.
const (
	AttrFromBee = attribute.Key("bus.from")
	AttrToBee   = attribute.Key("bus.to")
	AttrMsgType = attribute.Key("bus.type")
	AttrTaskID  = attribute.Key("task.id")
	AttrBeeName = attribute.Key("bee.name")
	AttrPane    = attribute.Key("injector.pane")
	AttrOutcome = attribute.Key("injector.outcome")
	AttrDryRun  = attribute.Key("injector.dry_run")
	AttrDuty    = attribute.Key("supervisor.duty")
	AttrStoreOp = attribute.Key("store.op")
)

// Span name prefixes for consistent naming across components.
const (
	SpanPrefixBus        = "bus."
	SpanPrefixInjector    = "injector."
	SpanPrefixStore       = "store."
	SpanPrefixSupervisor  = "supervisor."
	SpanPrefixTask        = "task."
)
