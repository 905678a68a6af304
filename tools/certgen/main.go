// Command certgen generates a self-signed TLS certificate pair for
// running the backend over HTTPS in development.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/popcoin-idle/popcoin/internal/certgen"
)

func main() {
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated DNS names and IPs")
	days := flag.Int("days", 365, "validity in days")
	certPath := flag.String("cert", "certs/server.crt", "output certificate path")
	keyPath := flag.String("key", "certs/server.key", "output key path")
	flag.Parse()

	certPEM, keyPEM, err := certgen.GenerateServerCertificate(
		strings.Split(*hosts, ","),
		time.Duration(*days)*24*time.Hour,
	)
	if err != nil {
		log.Fatalf("generate certificate: %v", err)
	}

	if err := certgen.WriteCertificate(*certPath, *keyPath, certPEM, keyPEM); err != nil {
		log.Fatalf("write certificate: %v", err)
	}

	fmt.Printf("Wrote %s and %s\n", *certPath, *keyPath)
}
