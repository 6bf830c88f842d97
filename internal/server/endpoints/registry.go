package endpoints

import (
	"github.com/jackzampolin/formshelf/internal/api"
	"github.com/jackzampolin/formshelf/internal/paddle"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// Paddle is nil when the server does not manage the engine container.
	Paddle *paddle.Manager
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{Paddle: cfg.Paddle},

		// Form endpoints
		&RecognizeEndpoint{},
		&TransformEndpoint{},
		&ReconcileEndpoint{},

		// Field endpoints
		&ParseFieldsEndpoint{},
		&GetFieldsEndpoint{},

		// Session endpoints
		&ListSessionsEndpoint{},
		&GetSessionEndpoint{},
		&AnnotatedImageEndpoint{},
		&ExportSessionEndpoint{},

		// Prompt and settings endpoints
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},
		&ListSettingsEndpoint{},
		&GetSettingEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},

		// Static files (catch-all, must be last)
		&StaticEndpoint{},
	}
}
