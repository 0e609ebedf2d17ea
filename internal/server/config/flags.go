package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/abroadportal/internal/flagx"
)

var flagNames = []string{"-a", "-h", "-d", "-s", "-t", "-l", "-u", "-p", "-b", "-g", "-e", "-k", "-w", "-q"}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-h string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-l string   log level (debug, info, warn, error)
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 endpoint (e.g., "http://127.0.0.1:9000/")
//	-k string   Kafka brokers, comma separated
//	-w string   relay webhook secret
//	-q string   step catalog YAML file
//
// Only the flags above are taken from os.Args (see flagx.FilterArgs), so
// -c/-config and -env can be given on the same command line.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], flagNames)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.GRPCAddr, "a", config.GRPCAddr, "address and port to run gRPC server")
	fs.StringVar(&config.HTTPAddr, "h", config.HTTPAddr, "address and port to run HTTP server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidity.Minutes()), "access token validity (in minutes)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3Endpoint, "e", config.S3Endpoint, "S3 endpoint")

	brokers := fs.String("k", strings.Join(config.KafkaBrokers, ","), "Kafka brokers, comma separated")

	fs.StringVar(&config.RelayWebhookSecret, "w", config.RelayWebhookSecret, "relay webhook secret")
	fs.StringVar(&config.StepCatalogPath, "q", config.StepCatalogPath, "step catalog YAML file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.AccessTokenValidity = time.Duration(*accessTokenValidity) * time.Minute
	config.KafkaBrokers = splitList(*brokers)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
