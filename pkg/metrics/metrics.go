package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	PostsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posts_created_total",
		Help: "Total posts successfully created",
	})

	CommentsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "comments_created_total",
		Help: "Total comments successfully created",
	})

	FollowsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "follows_created_total",
		Help: "Total follow relationships successfully created",
	})

	FollowsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "follows_rejected_total",
		Help: "Follow attempts rejected by a storage constraint",
	})

	FeedCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_cache_lookups_total",
		Help: "Feed cache lookups by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(PostsCreated)
	prometheus.MustRegister(CommentsCreated)
	prometheus.MustRegister(FollowsCreated)
	prometheus.MustRegister(FollowsRejected)
	prometheus.MustRegister(FeedCacheLookups)
}

// Instrument records request timing and status by route template
func Instrument() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			RequestDuration.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the Prometheus exposition format
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
