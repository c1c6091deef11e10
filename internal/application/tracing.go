package application

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("archie-core-merchant-onboarding/internal/application")
