package logging

// Component constants for structured logging
const (
	ComponentStartup  = "startup"
	ComponentPalette  = "palette"
	ComponentPrepare  = "prepare"
	ComponentRenderer = "renderer"
	ComponentLegend   = "legend"
	ComponentPipeline = "pipeline"
	ComponentStorage  = "storage"
	ComponentServer   = "server"
	ComponentJobs     = "jobs"
	ComponentLocales  = "locales"
)
