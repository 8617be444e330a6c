package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// MaxBodyBytes bounds the size of a /process request.
const MaxBodyBytes = 20 << 20

func NewRouter(req *Request) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = MaxBodyBytes
	router.Use(
		requestLogger(),
		gin.Recovery(),
		limitBodySize(MaxBodyBytes),
		cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	)

	router.GET("/", req.Health)
	router.POST("/process", req.ProcessData)
	return router
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
