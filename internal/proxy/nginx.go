// Package proxy generates and applies the nginx routing configuration
// that fronts the gateway.
//
// Generation is a pure function of the device registry and proxy settings:
// the same inputs always produce byte-identical text, so regeneration is
// idempotent and diffs cleanly. Applying the text is a separate concern
// with its own failure surface (the external validator), handled by
// Applier with no partial-apply window.
package proxy

import (
	"fmt"
	"strings"

	"github.com/farmhub/farmhub-core/internal/device"
	"github.com/farmhub/farmhub-core/internal/infrastructure/config"
)

// Generate renders the complete nginx site configuration.
//
// Per device it emits one upstream block and two locations (plain proxy
// and WebSocket upgrade) rooted at /{id}/. Shared directives (rate-limit
// zones, TLS parameters, security headers, the static dashboard root, and
// the /api/ catch-all to the aggregation backend) are emitted once.
//
// An empty registry yields a valid configuration with zero device blocks;
// the catch-all and static rules remain intact.
func Generate(cfg config.ProxyConfig, devices []device.Device) string {
	var b strings.Builder

	b.WriteString("# Farm Hub - Unified IoT Dashboard\n")
	b.WriteString("# Auto-generated configuration - do not edit by hand\n\n")

	// Rate limiting: general API traffic and (tighter) WebSocket upgrades.
	b.WriteString("# Rate limiting\n")
	fmt.Fprintf(&b, "limit_req_zone $binary_remote_addr zone=api_limit:10m rate=%dr/s;\n", cfg.APIRateLimit)
	fmt.Fprintf(&b, "limit_req_zone $binary_remote_addr zone=ws_limit:10m rate=%dr/s;\n\n", cfg.WSRateLimit)

	b.WriteString("# Upstream definitions\n")
	for _, d := range devices {
		writeUpstream(&b, d)
	}

	b.WriteString("\n# HTTP -> HTTPS redirect\n")
	b.WriteString("server {\n")
	b.WriteString("    listen 80;\n")
	b.WriteString("    server_name _;\n")
	b.WriteString("    return 301 https://$host$request_uri;\n")
	b.WriteString("}\n\n")

	b.WriteString("# Main HTTPS server\n")
	b.WriteString("server {\n")
	b.WriteString("    listen 443 ssl http2;\n")
	b.WriteString("    server_name _;\n\n")

	b.WriteString("    # SSL Configuration\n")
	fmt.Fprintf(&b, "    ssl_certificate %s;\n", cfg.CertFile)
	fmt.Fprintf(&b, "    ssl_certificate_key %s;\n", cfg.KeyFile)
	b.WriteString("    ssl_protocols TLSv1.2 TLSv1.3;\n")
	b.WriteString("    ssl_ciphers ECDHE-ECDSA-AES128-GCM-SHA256:ECDHE-RSA-AES128-GCM-SHA256;\n")
	b.WriteString("    ssl_prefer_server_ciphers off;\n")
	b.WriteString("    ssl_session_cache shared:SSL:10m;\n\n")

	b.WriteString("    # Security headers\n")
	b.WriteString("    add_header X-Frame-Options \"SAMEORIGIN\" always;\n")
	b.WriteString("    add_header X-Content-Type-Options \"nosniff\" always;\n\n")

	b.WriteString("    # Gzip\n")
	b.WriteString("    gzip on;\n")
	b.WriteString("    gzip_types text/plain text/css application/json application/javascript;\n")
	b.WriteString("    gzip_min_length 1000;\n\n")

	b.WriteString("    # Root for dashboard\n")
	fmt.Fprintf(&b, "    root %s;\n", cfg.WebRoot)
	b.WriteString("    index index.html;\n\n")

	b.WriteString("    # Main dashboard\n")
	b.WriteString("    location / {\n")
	b.WriteString("        try_files $uri $uri/ /index.html;\n")
	b.WriteString("    }\n\n")

	b.WriteString("    # API endpoints (aggregation backend)\n")
	b.WriteString("    location /api/ {\n")
	b.WriteString("        limit_req zone=api_limit burst=10 nodelay;\n")
	fmt.Fprintf(&b, "        proxy_pass http://%s;\n", cfg.BackendAddr)
	b.WriteString("        proxy_http_version 1.1;\n")
	b.WriteString("        proxy_set_header Host $host;\n")
	b.WriteString("    }\n")

	for _, d := range devices {
		writeLocations(&b, d)
	}

	b.WriteString("\n    # Error pages\n")
	b.WriteString("    error_page 502 503 504 /error.html;\n")
	b.WriteString("    location = /error.html {\n")
	b.WriteString("        internal;\n")
	fmt.Fprintf(&b, "        root %s;\n", cfg.WebRoot)
	b.WriteString("    }\n")
	b.WriteString("}\n")

	return b.String()
}

// writeUpstream emits one upstream block for a device.
func writeUpstream(b *strings.Builder, d device.Device) {
	fmt.Fprintf(b, "upstream %s {\n", d.ID)
	fmt.Fprintf(b, "    server %s;\n", d.Addr())
	b.WriteString("    keepalive 2;\n")
	b.WriteString("}\n")
}

// writeLocations emits the plain and WebSocket-upgrade locations for a device.
func writeLocations(b *strings.Builder, d device.Device) {
	fmt.Fprintf(b, "\n    # ==================== %s ====================\n", strings.ToUpper(displayName(d)))
	fmt.Fprintf(b, "    location /%s/ {\n", d.ID)
	fmt.Fprintf(b, "        proxy_pass http://%s/;\n", d.ID)
	b.WriteString("        proxy_http_version 1.1;\n")
	b.WriteString("        proxy_set_header Host $host;\n")
	b.WriteString("        proxy_set_header X-Real-IP $remote_addr;\n")
	b.WriteString("        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;\n")
	b.WriteString("        proxy_set_header X-Forwarded-Proto $scheme;\n")
	b.WriteString("        proxy_connect_timeout 5s;\n")
	b.WriteString("        proxy_read_timeout 60s;\n")
	b.WriteString("    }\n\n")

	fmt.Fprintf(b, "    location /%s/ws {\n", d.ID)
	b.WriteString("        limit_req zone=ws_limit burst=5 nodelay;\n")
	fmt.Fprintf(b, "        proxy_pass http://%s/ws;\n", d.ID)
	b.WriteString("        proxy_http_version 1.1;\n")
	b.WriteString("        proxy_set_header Upgrade $http_upgrade;\n")
	b.WriteString("        proxy_set_header Connection \"upgrade\";\n")
	b.WriteString("        proxy_set_header Host $host;\n")
	b.WriteString("        proxy_set_header X-Real-IP $remote_addr;\n")
	b.WriteString("        proxy_read_timeout 86400;\n")
	b.WriteString("    }\n")
}

// displayName returns the device name, falling back to the ID.
func displayName(d device.Device) string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}
