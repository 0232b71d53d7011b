package middleware

import (
	"corpsite/internal/config"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

// SecurityHeaders sets the browser hardening headers sent with every admin
// response. TLS terminates in front of the app, so there is no redirect.
func SecurityHeaders() gin.HandlerFunc {
	cfg := secure.DefaultConfig()
	cfg.SSLRedirect = false
	cfg.FrameDeny = true
	cfg.ContentTypeNosniff = true
	cfg.BrowserXssFilter = true
	cfg.STSSeconds = config.HSTSSeconds
	cfg.STSIncludeSubdomains = true
	cfg.ContentSecurityPolicy = config.DefaultCSP
	return secure.New(cfg)
}
