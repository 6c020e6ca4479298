package main

import (
	_ "embed"
	"flag"
	"os"
	"strings"

	"roomdrop/pkg/log"
	"roomdrop/pkg/server"
)

const contentDirPerm = 0750

//go:embed VERSION
var Version string

func main() {
	// Initialize logger first
	_ = log.Logger

	contentDir := flag.String("content", "build/content", "Content root directory path")
	addr := flag.String("addr", ":8080", "Listen address")
	certFile := flag.String("cert", "", "TLS certificate file (serve HTTPS when set)")
	keyFile := flag.String("key", "", "TLS key file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		log.SetDebugMode()
	}

	if (*certFile == "") != (*keyFile == "") {
		log.Fatal().Msg("TLS requires both -cert and -key")
	}

	if err := os.MkdirAll(*contentDir, contentDirPerm); err != nil {
		log.Fatal().Err(err).Str("content_dir", *contentDir).Msg("Failed to create content directory")
	}

	srv, err := server.New(*contentDir, strings.TrimSpace(Version))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}
	if *certFile != "" {
		srv.WithTLS(*certFile, *keyFile)
	}

	if err := srv.Start(*addr); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}

	os.Exit(0)
}
