// media-stream-map renders the sessions of a media server on a world
// map: live streams as they happen, and stored history replayed over a
// timeline.  One binary, embedded frontend, four interchangeable SQL
// backends.
package main

import (
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"runtime"
	"time"

	"golang.org/x/crypto/acme/autocert"

	"media-stream-map/pkg/api"
	"media-stream-map/pkg/database"
	"media-stream-map/pkg/deltastream"
	"media-stream-map/pkg/geoloc"
	"media-stream-map/pkg/poller"
	"media-stream-map/pkg/reconcile"
	"media-stream-map/pkg/session"
	"media-stream-map/pkg/source"
)

//go:embed public_html/*
var content embed.FS

var domain = flag.String("domain", "", "Use 80 and 443 ports. Automatic HTTPS cert via Let's Encrypt.")
var dbType = flag.String("db-type", "sqlite", "Type of the database driver: genji, sqlite, duckdb, or pgx (postgresql)")
var dbPath = flag.String("db-path", "", "Path to the database file (defaults to the current folder, applicable for genji, sqlite drivers)")
var dbConn = flag.String("db-conn", "", "Raw PostgreSQL DSN, overrides the individual -db-* flags (applicable for pgx driver)")
var dbHost = flag.String("db-host", "127.0.0.1", "Database host (applicable for pgx driver)")
var dbPort = flag.Int("db-port", 5432, "Database port (applicable for pgx driver)")
var dbUser = flag.String("db-user", "postgres", "Database user (applicable for pgx driver)")
var dbPass = flag.String("db-pass", "", "Database password (applicable for pgx driver)")
var dbName = flag.String("db-name", "MediaStreamMap", "Database name (applicable for pgx driver)")
var pgSSLMode = flag.String("pg-ssl-mode", "prefer", "PostgreSQL SSL mode: disable, allow, prefer, require, verify-ca, or verify-full")
var port = flag.Int("port", 8765, "Port for running the server")
var version = flag.Bool("version", false, "Show the application version")
var sourceURL = flag.String("source-url", "", "Base URL of the media server stats API, e.g. http://tautulli.local:8181")
var sourceAPIKey = flag.String("source-api-key", "", "API key for the media server stats API")
var refreshInterval = flag.Duration("refresh-interval", 10*time.Second, "How often to poll the media server for active sessions")
var serverLat = flag.Float64("server-lat", 52.3676, "Latitude used for sessions without a resolvable location")
var serverLon = flag.Float64("server-lon", 4.9041, "Longitude used for sessions without a resolvable location")
var baseURL = flag.String("base-url", "", "Public base URL for QR share links (defaults to http://localhost:<port>)")
var zoneName = flag.String("timezone", "", "IANA zone for stats bucketing, e.g. Europe/Amsterdam (defaults to UTC)")

var CompileVersion = "dev"

// withServerHeader wraps any http.Handler, adding the header
// "Server: media-stream-map/<CompileVersion>".
//
// A HEAD request to "/" is answered 200 OK with no body, so load
// balancers can see the service is alive.
func withServerHeader(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "media-stream-map/"+CompileVersion)

		if r.Method == http.MethodHead && r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// serveWithDomain runs:
//   - :80  — ACME HTTP-01 + 301-redirect to https://<domain>/…
//   - :443 — HTTPS with automatic Let's Encrypt certificates.
//
// If autocert cannot issue a cert for a host or SNI, the server still
// hands out a previously obtained fallback cert, so IP-address visits
// do not flood the log with "host not configured".
//
// Compatibility: TLS ≥ 1.0, ALPN h2/http1.1/http1.0.
// All errors are only logged.
func serveWithDomain(domain string, handler http.Handler) {
	certMgr := &autocert.Manager{
		Prompt: autocert.AcceptTOS,
		Cache:  autocert.DirCache("certs"),
		HostPolicy: func(ctx context.Context, host string) error {
			// Allow the bare domain and www.<domain>.
			if host == domain || host == "www."+domain {
				return nil
			}
			// An IP address is not blocked, we just never request a cert.
			if net.ParseIP(host) != nil {
				return nil
			}
			return errors.New("acme/autocert: host not configured")
		},
	}

	// :80 — challenge + redirect.
	go func() {
		mux80 := http.NewServeMux()
		mux80.Handle("/.well-known/acme-challenge/", certMgr.HTTPHandler(nil))
		mux80.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			target := "https://" + domain + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusMovedPermanently)
		})

		log.Printf("HTTP  server (ACME+redirect) ➜ :80")
		if err := (&http.Server{
			Addr:              ":80",
			Handler:           mux80,
			ReadHeaderTimeout: 10 * time.Second,
		}).ListenAndServe(); err != nil {
			log.Printf("HTTP  server error: %v", err)
		}
	}()

	// Daily certificate renewal check.
	go func() {
		t := time.NewTicker(24 * time.Hour)
		defer t.Stop()
		for range t.C {
			if _, err := certMgr.GetCertificate(&tls.ClientHelloInfo{ServerName: domain}); err != nil {
				log.Printf("autocert renewal check: %v", err)
			}
		}
	}()

	// :443 — HTTPS.
	tlsCfg := certMgr.TLSConfig()
	tlsCfg.MinVersion = tls.VersionTLS10
	tlsCfg.NextProtos = append([]string{"http/1.0"}, tlsCfg.NextProtos...)

	// Fallback certificate for IP visits and odd SNI values.
	var defaultCert *tls.Certificate
	go func() {
		for defaultCert == nil {
			if c, err := certMgr.GetCertificate(&tls.ClientHelloInfo{ServerName: domain}); err == nil {
				defaultCert = c
			}
			time.Sleep(time.Minute)
		}
	}()
	tlsCfg.GetCertificate = func(chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
		c, err := certMgr.GetCertificate(chi)
		if err == nil {
			return c, nil
		}
		if defaultCert != nil {
			return defaultCert, nil
		}
		return nil, err
	}

	log.Printf("HTTPS server for %s ➜ :443 (TLS ≥1.0, ALPN h2/http1.1/1.0)", domain)
	if err := (&http.Server{
		Addr:              ":443",
		Handler:           handler,
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
	}).ListenAndServeTLS("", ""); err != nil {
		log.Printf("HTTPS server error: %v", err)
	}
}

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("media-stream-map version %s\n", CompileVersion)
		return
	}

	if *domain != "" && runtime.GOOS != "windows" && os.Geteuid() != 0 {
		log.Println("⚠  Binding to :80 / :443 requires super-user rights; run with sudo or as root.")
	}

	db, err := database.New(database.Config{
		DBType:    *dbType,
		DBPath:    *dbPath,
		DBConn:    *dbConn,
		DBHost:    *dbHost,
		DBPort:    *dbPort,
		DBUser:    *dbUser,
		DBPass:    *dbPass,
		DBName:    *dbName,
		PGSSLMode: *pgSSLMode,
		Port:      *port,
	})
	if err != nil {
		log.Fatalf("DB init: %v", err)
	}
	defer db.Close()

	zone := time.UTC
	if *zoneName != "" {
		if z, err := time.LoadLocation(*zoneName); err != nil {
			log.Printf("timezone %q: %v, staying on UTC", *zoneName, err)
		} else {
			zone = z
		}
	}

	origin := session.Location{Lat: *serverLat, Lon: *serverLon}
	public := *baseURL
	if public == "" {
		public = fmt.Sprintf("http://localhost:%d", *port)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := deltastream.NewBus(16)

	handler := &api.Handler{
		DB:      db,
		Bus:     bus,
		Origin:  origin,
		Zone:    zone,
		BaseURL: public,
	}

	// The upstream client is optional: without it the map serves stored
	// history only, which is handy for demos and for tests.
	if *sourceURL != "" {
		client := source.New(*sourceURL, *sourceAPIKey)
		geo := geoloc.NewCache(client.GeoIP)
		handler.History = client.History
		handler.Geo = geo

		poller.Start(ctx, poller.Config{
			Fetch:      client.Activity,
			Enrich:     geo.Enrich,
			Reconciler: reconcile.New(origin),
			Bus:        bus,
			Interval:   *refreshInterval,
		})
	} else {
		log.Println("no -source-url configured: live polling disabled, serving stored history only")
	}

	staticFS, err := fs.Sub(content, "public_html")
	if err != nil {
		log.Fatalf("static fs: %v", err)
	}

	mux := http.NewServeMux()
	handler.Register(ctx, mux)
	mux.Handle("/", http.FileServer(http.FS(staticFS)))

	rootHandler := withServerHeader(mux)

	if *domain != "" {
		go serveWithDomain(*domain, rootHandler)
	} else {
		addr := fmt.Sprintf(":%d", *port)
		go func() {
			log.Printf("HTTP server ➜ http://localhost%s", addr)
			if err := http.ListenAndServe(addr, rootHandler); err != nil {
				log.Printf("HTTP server error: %v", err)
			}
		}()
	}

	select {}
}
