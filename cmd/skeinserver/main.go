/*
Skeinserver starts a Skein server and begins listening for new connections.

Usage:

	skeinserver [flags]

Once started, the Skein server will listen for HTTP requests and respond to
them using REST protocol. By default, it will listen on localhost:8080. This can
be changed with the --listen/-l flag (or config via environment var). The flag
argument must be either a full address with port, such as "192.168.0.2:6001", or
just the port preceeded by a colon, such as ":6001".

Settings are taken from, in increasing order of priority, a TOML config file,
environment variables, and flags. The config file may set the keys "listen",
"token_secret", "database", and "unauth_delay_ms".

If a JWT token secret is not given, one will be automatically generated. As a
consequence, in this mode of operation all tokens are rendered invalid as soon
as the server shuts down. This is suitable for testing, but must be given via
either CLI flags or environment variable if running in production.

The flags are:

	-v, --version
		Give the current version of the Skein server and then exit.

	-c, --config FILE
		Read settings from the given TOML file. If not given, will default to
		the value of environment variable SKEIN_CONFIG.

	-l, --listen LISTEN_ADDRESS
		Listen on the given address. Must be in BIND_ADDRESS:PORT or :PORT
		format. If not given, will default to the value of environment variable
		SKEIN_LISTEN_ADDRESS, and if that is not given, will default to
		localhost:8080.

	-s, --secret TOKEN_SECRET
		Use the provided secret for signing JWT tokens. If there are less than
		32 bytes in the secret, it will be repeated until it is. The maximum
		size is 64 bytes. If not given, will default to the value of environment
		variable SKEIN_TOKEN_SECRET. If no secret is specified, a random secret
		will be automatically generated.

	--db DRIVER[:PARAMS]
		Use the given DB connection string. DRIVER must be one of the following:
		inmem, sqlite. inmem has no further params. sqlite needs the path to the
		data directory such as sqlite:path/to/db_dir. If not given, will default
		to the value of environment variable SKEIN_DATABASE. If no DB driver
		is specified, an in-memory database is automatically selected.

	--admin-password PASSWORD
		Create the user "admin" with the given password at startup if it does
		not already exist. If not given, will default to the value of
		environment variable SKEIN_ADMIN_PASSWORD, and if that is not given,
		"password" is used.
*/
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"os"

	"github.com/dekarrin/skein/internal/version"
	"github.com/dekarrin/skein/server"
	"github.com/spf13/pflag"
)

const (
	EnvConfig        = "SKEIN_CONFIG"
	EnvListen        = "SKEIN_LISTEN_ADDRESS"
	EnvSecret        = "SKEIN_TOKEN_SECRET"
	EnvDB            = "SKEIN_DATABASE"
	EnvAdminPassword = "SKEIN_ADMIN_PASSWORD"
)

const (
	ExitSuccess = iota
	ExitUsageError
	ExitInitError
)

var (
	flagVersion   = pflag.BoolP("version", "v", false, "Give the current version of Skein server and then exit.")
	flagConfig    = pflag.StringP("config", "c", "", "Read settings from the given TOML file.")
	flagListen    = pflag.StringP("listen", "l", "", "Listen on the given address.")
	flagSecret    = pflag.StringP("secret", "s", "", "Use the given secret for token generation.")
	flagDB        = pflag.String("db", "", "Use the given DB connection string.")
	flagAdminPass = pflag.String("admin-password", "", "Password of the initial admin user.")
)

// setting returns the value of the flag if it was given, otherwise the value of
// the environment variable.
func setting(flagName string, flagVal *string, env string) string {
	if pflag.Lookup(flagName).Changed {
		return *flagVal
	}
	return os.Getenv(env)
}

func usageError(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\nDo -h for help.\n", a...)
	os.Exit(ExitUsageError)
}

func main() {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s (Skein v%s)\n", version.ServerCurrent, version.Current)
		return
	}

	if len(pflag.Args()) > 0 {
		usageError("Too many arguments")
	}

	var cfg server.Config
	if cfgFile := setting("config", flagConfig, EnvConfig); cfgFile != "" {
		var err error
		cfg, err = server.LoadConfigFile(cfgFile)
		if err != nil {
			usageError("Could not load config file: %s", err.Error())
		}
	}

	if listenAddr := setting("listen", flagListen, EnvListen); listenAddr != "" {
		if _, _, err := server.SplitListenAddress(listenAddr); err != nil {
			usageError("%s", err.Error())
		}
		cfg.ListenAddress = listenAddr
	}

	if dbConnStr := setting("db", flagDB, EnvDB); dbConnStr != "" {
		db, err := server.ParseDBConnString(dbConnStr)
		if err != nil {
			usageError("Not a valid DB string: %s", err.Error())
		}
		cfg.DB = db
	}

	if tokSecStr := setting("secret", flagSecret, EnvSecret); tokSecStr != "" {
		cfg.TokenSecret = []byte(tokSecStr)
	}

	if cfg.TokenSecret != nil {
		for len(cfg.TokenSecret) < server.MinSecretSize {
			doubled := make([]byte, len(cfg.TokenSecret)*2)
			copy(doubled, cfg.TokenSecret)
			copy(doubled[len(cfg.TokenSecret):], cfg.TokenSecret)
			cfg.TokenSecret = doubled
		}

		if len(cfg.TokenSecret) > server.MaxSecretSize {
			// keys would be chopped at 64, so rather than the user thinking
			// they have more security by giving a longer key, refuse to start.
			usageError("Token secret is %d bytes, but it must be <= %d bytes", len(cfg.TokenSecret), server.MaxSecretSize)
		}
	} else {
		cfg.TokenSecret = make([]byte, server.MaxSecretSize)
		if _, err := rand.Read(cfg.TokenSecret); err != nil {
			fmt.Fprintf(os.Stderr, "Could not generate token secret: %s\n", err.Error())
			os.Exit(ExitInitError)
		}

		log.Printf("WARN  Using generated token secret; all tokens issued will become invalid at shutdown")
	}

	ss, err := server.New(cfg)
	if err != nil {
		log.Fatalf("FATAL could not start server: %s", err.Error())
	}
	defer ss.Close()
	log.Printf("DEBUG Server initialized")

	adminPass := setting("admin-password", flagAdminPass, EnvAdminPassword)
	if adminPass == "" {
		adminPass = "password"
	}
	created, err := ss.CreateAdmin(context.Background(), "admin", adminPass)
	if err != nil {
		log.Printf("ERROR could not create initial admin user: %v", err)
		os.Exit(ExitInitError)
	}
	if created {
		log.Printf("INFO  Added initial admin user 'admin'")
	}

	log.Printf("INFO  Starting Skein server %s...", version.ServerCurrent)
	ss.ServeForever()
}
