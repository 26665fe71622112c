package main

import (
	"errors"
	"flag"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const ENV_PREFIX = "ROUTING_"

// 将flag名转换为环境变量名，如overpass-timeout -> ROUTING_OVERPASS_TIMEOUT
func envName(flagName string) string {
	r := strings.NewReplacer("-", "_", ".", "_")
	return ENV_PREFIX + strings.ToUpper(r.Replace(flagName))
}

// loadEnv reads the optional .env files and applies ROUTING_* variables to
// every flag not given on the command line.
func loadEnv(fset *flag.FlagSet, files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	explicit := make(map[string]bool)
	fset.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})
	var err error
	fset.VisitAll(func(f *flag.Flag) {
		if explicit[f.Name] || err != nil {
			return
		}
		if v, ok := os.LookupEnv(envName(f.Name)); ok {
			err = fset.Set(f.Name, v)
		}
	})
	return err
}
