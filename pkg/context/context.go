package context

import "context"

type ContextKey string

var (
	RequestIDKey    = ContextKey("X-Request-Id")
	MethodKey       = ContextKey("X-Method")
	RouteKey        = ContextKey("X-Route")
	RemoteIPKey     = ContextKey("X-Remote-Ip")
	RunIDKey        = ContextKey("X-Run-Id")
	ResourceTypeKey = ContextKey("X-Resource-Type")
)

func get(ctx context.Context, key ContextKey) string {
	value, ok := ctx.Value(key).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	return get(ctx, RequestIDKey)
}

func SetMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, MethodKey, method)
}

func GetMethod(ctx context.Context) string {
	return get(ctx, MethodKey)
}

func SetRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, RouteKey, route)
}

func GetRoute(ctx context.Context) string {
	return get(ctx, RouteKey)
}

func SetRemoteIP(ctx context.Context, remoteIP string) context.Context {
	return context.WithValue(ctx, RemoteIPKey, remoteIP)
}

func GetRemoteIP(ctx context.Context) string {
	return get(ctx, RemoteIPKey)
}

// SetRunID scopes the context to one crawl or export run.
func SetRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

func GetRunID(ctx context.Context) string {
	return get(ctx, RunIDKey)
}

func SetResourceType(ctx context.Context, resourceType string) context.Context {
	return context.WithValue(ctx, ResourceTypeKey, resourceType)
}

func GetResourceType(ctx context.Context) string {
	return get(ctx, ResourceTypeKey)
}

// LogFields returns the request and run scoped values present on ctx.
func LogFields(ctx context.Context) map[string]any {
	fields := map[string]any{}
	for key, name := range map[ContextKey]string{
		RequestIDKey:    "request_id",
		RunIDKey:        "run_id",
		ResourceTypeKey: "resource_type",
	} {
		if value := get(ctx, key); value != "" {
			fields[name] = value
		}
	}
	return fields
}
