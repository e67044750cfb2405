package main

import (
	"fmt"
	"os"

	"github.com/eniz1806/UniStore/pkg/access"
	"github.com/eniz1806/UniStore/pkg/operator"
	"github.com/eniz1806/UniStore/pkg/services/bolt"
	"github.com/eniz1806/UniStore/pkg/services/fs"
	"github.com/eniz1806/UniStore/pkg/services/gcs"
	"github.com/eniz1806/UniStore/pkg/services/memory"
	"github.com/eniz1806/UniStore/pkg/services/nats"
	"github.com/eniz1806/UniStore/pkg/services/redis"
	"github.com/eniz1806/UniStore/pkg/services/webhdfs"
)

var version = "dev"

var (
	profilesPath string
	profileName  string
)

func init() {
	profilesPath = envOrDefault("UNISTORE_PROFILES", "unistore.yml")
	profileName = envOrDefault("UNISTORE_PROFILE", "default")
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRegistry() *operator.Registry {
	reg := operator.NewRegistry()
	reg.Register(access.SchemeMemory, memory.New)
	reg.Register(access.SchemeFs, fs.New)
	reg.Register(access.SchemeBolt, bolt.New)
	reg.Register(access.SchemeRedis, redis.New)
	reg.Register(access.SchemeNats, nats.New)
	reg.Register(access.SchemeGcs, gcs.New)
	reg.Register(access.SchemeWebhdfs, webhdfs.New)
	return reg
}

func buildOperator() *operator.Operator {
	profiles, err := operator.LoadProfiles(profilesPath)
	if err != nil {
		fatal(err.Error())
	}
	profile, ok := profiles[profileName]
	if !ok {
		fatal(fmt.Sprintf("profile %q not found in %s", profileName, profilesPath))
	}
	op, err := newRegistry().NewFromProfile(profile)
	if err != nil {
		fatal(err.Error())
	}
	return op
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Parse global flags before subcommand
	args := os.Args[1:]
	for len(args) > 0 && len(args[0]) > 0 && args[0][0] == '-' {
		switch args[0] {
		case "--profiles":
			if len(args) < 2 {
				fatal("--profiles requires a value")
			}
			profilesPath = args[1]
			args = args[2:]
		case "--profile":
			if len(args) < 2 {
				fatal("--profile requires a value")
			}
			profileName = args[1]
			args = args[2:]
		case "--version", "-v":
			fmt.Printf("unistore %s\n", version)
			os.Exit(0)
		case "--help", "-h":
			printUsage()
			os.Exit(0)
		default:
			fatal("unknown flag: " + args[0])
		}
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "ls", "list":
		runList(cmdArgs)
	case "stat":
		runStat(cmdArgs)
	case "cat":
		runCat(cmdArgs)
	case "put":
		runPut(cmdArgs)
	case "get":
		runGet(cmdArgs)
	case "rm":
		runRemove(cmdArgs)
	case "cp":
		runCopy(cmdArgs)
	case "mkdir":
		runMkdir(cmdArgs)
	case "presign":
		runPresign(cmdArgs)
	case "schemes":
		runSchemes()
	case "version":
		fmt.Printf("unistore %s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: unistore [flags] <command> [args]

Global Flags:
  --profiles <file>    Profiles file (default: $UNISTORE_PROFILES or unistore.yml)
  --profile <name>     Profile to use (default: $UNISTORE_PROFILE or default)
  --version, -v        Show version

Commands:
  ls <path> [--recursive] [--start-after=<path>]   List a directory
  stat <path>                                      Show object metadata
  cat <path>                                       Print object content
  put <path> <file>                                Upload a local file
  get <path> <file>                                Download to a local file
  rm <path> [--all]                                Delete an object or tree
  cp <from> <to>                                   Copy an object
  mkdir <path>                                     Create a directory
  presign <read|write|stat> <path> [--expires=3600] Generate a presigned request
  schemes                                          List registered schemes
  version                                          Show version`)
}
