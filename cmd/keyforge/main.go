package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"keyforge/go-backend/internal/account"
	"keyforge/go-backend/internal/bootstrap/deriveconfig"
	"keyforge/go-backend/internal/derive"
	"keyforge/go-backend/internal/securestore"
	"keyforge/go-backend/internal/terminalio"
	"keyforge/go-backend/internal/wallet"
)

const (
	exitOK            = 0
	exitInvalidInput  = 10
	exitResourceLimit = 20
	exitKeyMaterial   = 30
	exitWriteFailed   = 40

	passwordEnv = "KEYFORGE_PASSWORD"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitInvalidInput)
	}

	switch os.Args[1] {
	case "evm":
		runDerive(account.EVM{}, os.Args[2:])
	case "ed25519":
		runDerive(account.Ed25519{}, os.Args[2:])
	case "params":
		runParams(os.Args[2:])
	default:
		printUsage()
		os.Exit(exitInvalidInput)
	}
}

func runDerive(materializer account.Materializer, args []string) {
	fs := flag.NewFlagSet(materializer.Chain(), flag.ExitOnError)
	userSalt := fs.String("user-salt", "", "user salt (prompted if omitted)")
	appSalt := fs.String("app-salt", "", "application salt (config default if omitted)")
	cost := fs.Int("cost", 0, "cost exponent; effective scrypt N is 2^cost")
	configPath := fs.String("config", "", "path to keyforge.yaml (optional)")
	outPath := fs.String("out", "", "file to write the secret export to")
	encrypt := fs.Bool("encrypt", false, "seal the secret export in a passphrase keystore")
	mnemonic := fs.Bool("mnemonic", false, "also print a 24-word backup phrase for the seed")
	asJSON := fs.Bool("json", false, "emit json")
	showSecret := fs.Bool("show-secret", false, "print the full secret export to stdout")
	if err := fs.Parse(args); err != nil {
		fatal(err.Error(), exitInvalidInput)
	}

	cfg := deriveconfig.LoadFromPath(*configPath)
	if *cost == 0 {
		*cost = cfg.Derivation.DefaultCostExponent
	}

	password, err := terminalio.ReadSecretConfirmed("Password: ", "Confirm password: ", passwordEnv)
	if err != nil {
		fatal(err.Error(), exitInvalidInput)
	}
	defer terminalio.ZeroBytes(password)
	if len(password) == 0 {
		fatal("password must not be empty", exitInvalidInput)
	}

	userSaltBytes := []byte(*userSalt)
	if len(userSaltBytes) == 0 {
		userSaltBytes, err = terminalio.ReadSecret("User salt: ", "")
		if err != nil {
			fatal(err.Error(), exitInvalidInput)
		}
	}
	defer terminalio.ZeroBytes(userSaltBytes)
	if len(userSaltBytes) == 0 {
		fatal("user salt must not be empty", exitInvalidInput)
	}

	appSaltBytes := []byte(*appSalt)
	if len(appSaltBytes) == 0 {
		appSaltBytes = []byte(cfg.Derivation.AppSalt)
	}
	if len(appSaltBytes) == 0 {
		appSaltBytes, err = terminalio.ReadSecret("Application salt: ", "")
		if err != nil {
			fatal(err.Error(), exitInvalidInput)
		}
	}
	defer terminalio.ZeroBytes(appSaltBytes)
	if len(appSaltBytes) == 0 {
		fatal("application salt must not be empty", exitInvalidInput)
	}

	gen := wallet.Generator{
		Engine:           derive.Engine{MaxMemory: cfg.Derivation.MaxMemoryBytes},
		Materializer:     materializer,
		WithBackupPhrase: *mnemonic,
	}
	res, err := gen.Generate(wallet.Inputs{
		Password:     password,
		UserSalt:     userSaltBytes,
		AppSalt:      appSaltBytes,
		CostExponent: *cost,
	})
	if err != nil {
		fatal(err.Error(), deriveExitCode(err))
	}

	if *outPath != "" {
		path := *outPath
		if !filepath.IsAbs(path) && cfg.Output.Dir != "" {
			path = filepath.Join(cfg.Output.Dir, path)
		}
		if *encrypt {
			passphrase, err := terminalio.ReadSecretConfirmed("Keystore passphrase: ", "Confirm passphrase: ", "KEYFORGE_KEYSTORE_PASSPHRASE")
			if err != nil {
				fatal(err.Error(), exitInvalidInput)
			}
			err = securestore.WriteSealedSecret(path, string(passphrase), res.Account.Chain, res.Account.Address, res.Account.SecretExport)
			terminalio.ZeroBytes(passphrase)
			if err != nil {
				fatal("writing keystore failed: "+err.Error(), exitWriteFailed)
			}
		} else if err := securestore.WriteSecretString(path, res.Account.SecretExport); err != nil {
			fatal("writing secret export failed: "+err.Error(), exitWriteFailed)
		}
	}

	if *asJSON {
		out := map[string]any{
			"chain":          res.Account.Chain,
			"address":        res.Account.Address,
			"cost_factor_n":  res.CostFactorN,
			"secret_preview": res.Account.SecretPreview(),
		}
		if *showSecret {
			out["secret_export"] = res.Account.SecretExport
		}
		if res.BackupPhrase != "" {
			out["mnemonic"] = res.BackupPhrase
		}
		if err := printJSON(out); err != nil {
			fatal(err.Error(), exitWriteFailed)
		}
		os.Exit(exitOK)
	}

	fmt.Printf("chain:           %s\n", res.Account.Chain)
	fmt.Printf("address:         %s\n", res.Account.Address)
	fmt.Printf("cost factor (N): %d\n", res.CostFactorN)
	if *showSecret {
		fmt.Printf("secret export:   %s\n", res.Account.SecretExport)
	} else {
		fmt.Printf("secret preview:  %s\n", res.Account.SecretPreview())
	}
	if res.BackupPhrase != "" {
		fmt.Printf("backup phrase:   %s\n", res.BackupPhrase)
	}
	os.Exit(exitOK)
}

func runParams(args []string) {
	fs := flag.NewFlagSet("params", flag.ExitOnError)
	cost := fs.Int("cost", 0, "cost exponent to inspect")
	configPath := fs.String("config", "", "path to keyforge.yaml (optional)")
	if err := fs.Parse(args); err != nil {
		fatal(err.Error(), exitInvalidInput)
	}

	cfg := deriveconfig.LoadFromPath(*configPath)
	if *cost == 0 {
		*cost = cfg.Derivation.DefaultCostExponent
	}
	params, err := derive.ParamsForExponent(*cost, cfg.Derivation.MaxMemoryBytes)
	if err != nil {
		fatal(err.Error(), deriveExitCode(err))
	}
	fmt.Printf("N=%d r=%d p=%d keyLen=%d memory=%d bytes (ceiling %d)\n",
		params.N, params.R, params.P, params.KeyLen, params.MemoryBytes(), cfg.Derivation.MaxMemoryBytes)
	os.Exit(exitOK)
}

func deriveExitCode(err error) int {
	switch {
	case errors.Is(err, derive.ErrResourceLimitExceeded):
		return exitResourceLimit
	case errors.Is(err, derive.ErrInvalidKeyMaterial):
		return exitKeyMaterial
	default:
		return exitInvalidInput
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage() {
	fmt.Fprintln(os.Stdout, "keyforge <command> [flags]")
	fmt.Fprintln(os.Stdout, "commands:")
	fmt.Fprintln(os.Stdout, "  evm      [--user-salt s] [--app-salt s] [--cost n] [--out file] [--encrypt] [--mnemonic] [--json] [--show-secret]")
	fmt.Fprintln(os.Stdout, "  ed25519  [--user-salt s] [--app-salt s] [--cost n] [--out file] [--encrypt] [--mnemonic] [--json] [--show-secret]")
	fmt.Fprintln(os.Stdout, "  params   [--cost n] [--config path]")
}

func fatal(line string, exitCode int) {
	fmt.Fprintln(os.Stderr, line)
	os.Exit(exitCode)
}
