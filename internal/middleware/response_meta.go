package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"

	// CacheHeader tells clients whether a leave inbox or notice board list
	// came from Redis.
	CacheHeader = "X-Cache"
)

// WithResponseMeta gives each request a meta map that handlers pass to the
// response envelope. processing_time_ms is filled in after the handler ran.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		meta := map[string]interface{}{}
		c.Set(responseMetaKey, meta)
		c.Next()
		if _, ok := meta["processing_time_ms"]; !ok {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
}

// SetCacheHit marks the response as served from cache or not.
func SetCacheHit(c *gin.Context, hit bool) {
	if c == nil {
		return
	}
	metaOf(c)[cacheHitKey] = hit
	value := "MISS"
	if hit {
		value = "HIT"
	}
	c.Header(CacheHeader, value)
}

// ExtractMeta returns the request's meta map, or nil when WithResponseMeta
// is not installed and nothing was recorded.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta, _ := c.Get(responseMetaKey)
	typed, _ := meta.(map[string]interface{})
	return typed
}

func metaOf(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := map[string]interface{}{}
	c.Set(responseMetaKey, meta)
	return meta
}
