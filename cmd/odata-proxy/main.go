// Command odata-proxy exposes an OData service through a local HTTP proxy
// with Redis-backed conditional caching, retries, and Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/odatakit/odata-client/pkg/cache"
	"github.com/odatakit/odata-client/pkg/client"
	"github.com/odatakit/odata-client/pkg/logging"
	"github.com/odatakit/odata-client/pkg/transport"
)

func main() {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") != "",
		Output: os.Stderr,
	})

	baseURL := os.Getenv("ODATA_BASE_URL")
	if baseURL == "" {
		logger.Fatal().Msg("ODATA_BASE_URL is required")
	}
	port := getEnv("PORT", "8080")
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	userAgent := getEnv("USER_AGENT", "odata-proxy/0.1.0")

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	ctx := context.Background()
	var tr transport.Transport = transport.NewRetrying(transport.NewHTTPClient(nil), nil)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("redis_url", redisURL).Msg("Redis unavailable, caching disabled")
	} else {
		logger.Info().Str("redis_url", redisURL).Msg("Connected to Redis")
		tr = transport.NewCaching(tr, cache.NewStore(redisClient))
	}

	cfg := client.DefaultConfig(baseURL)
	cfg.Transport = tr
	cfg.UserAgent = userAgent

	odataClient, err := client.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create OData client")
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/ready", readyHandler(redisClient))
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/odata/", odataProxyHandler(odataClient))

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("base_url", baseURL).
		Str("user_agent", userAgent).
		Msg("Starting OData proxy server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "redis unavailable: %v", err)
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func odataProxyHandler(odataClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// /odata/contacts?$top=10 -> contacts?$top=10
		endpoint := r.URL.Path[len("/odata/"):]
		if r.URL.RawQuery != "" {
			endpoint += "?" + r.URL.RawQuery
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		resp, err := odataClient.Execute(ctx, transport.Request{
			Method: r.Method,
			URL:    endpoint,
		})
		if err != nil {
			http.Error(w, fmt.Sprintf("OData request failed: %v", err), http.StatusBadGateway)
			return
		}

		for _, name := range resp.Headers.Names() {
			for _, value := range resp.Headers.Values(name) {
				w.Header().Add(name, value)
			}
		}
		w.WriteHeader(resp.Status)
		fmt.Fprint(w, resp.Body)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
