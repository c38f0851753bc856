package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"closuregen/internal/config"
	"closuregen/internal/devserver"
	"closuregen/internal/jshost"
	"closuregen/internal/jsvalue"
	"closuregen/internal/modules"
	"closuregen/internal/publish"
	"closuregen/internal/wellknown"
)

var errStale = errors.New("generated module differs from the file on disk")

func main() {
	err := run(os.Args[1:], os.Stdin, os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	case errors.Is(err, errStale):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	default:
		log.Fatal(err)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("closuregen", flag.ContinueOnError)
	in := fs.String("in", "", "JSON document to export (default stdin)")
	export := fs.String("export", "default", `"default", "=" for an assignment export, or a const export name`)
	out := fs.String("out", "", "write the module to this file (default stdout)")
	check := fs.Bool("check", false, "compare the module with -out and print a diff instead of writing")
	pub := fs.String("publish", "", "upload the module to S3 under this name")
	serve := fs.Bool("serve", false, "serve -dir as modules instead of converting one document")

	cfg, err := config.Load(fs, args)
	if err != nil {
		return err
	}

	r := jsvalue.NewRealm()
	mgr, err := newManager(r, cfg)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if *serve {
		return serveDev(cfg, mgr)
	}

	data, err := readInput(*in, stdin)
	if err != nil {
		return err
	}
	v, err := r.FromJSON(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", inputName(*in), err)
	}
	opts, err := exportOptions(*export, v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	gen, err := mgr.Load(ctx, mgr.Register(opts))
	if err != nil {
		return err
	}

	switch {
	case *check:
		if *out == "" {
			return fmt.Errorf("-check needs -out")
		}
		old, err := os.ReadFile(*out)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if patch := unified(*out, old, []byte(gen.Text)); patch != "" {
			fmt.Fprint(stdout, patch)
			return fmt.Errorf("%w: %s", errStale, *out)
		}
	case *out != "":
		if err := os.WriteFile(*out, []byte(gen.Text), 0o644); err != nil {
			return err
		}
	default:
		if _, err := io.WriteString(stdout, gen.Text); err != nil {
			return err
		}
	}

	if *pub != "" {
		return publishModule(ctx, cfg, *pub, gen.Text, stdout)
	}
	return nil
}

func newManager(r *jsvalue.Realm, cfg *config.Config) (*modules.Manager, error) {
	host, err := jshost.New(r, jshost.WithParseCacheSize(cfg.ParseCache))
	if err != nil {
		return nil, err
	}
	base, err := wellknown.NewBase(r)
	if err != nil {
		return nil, err
	}
	return modules.New(host, base, cfg.Modules)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func inputName(path string) string {
	if path == "" || path == "-" {
		return "stdin"
	}
	return path
}

func exportOptions(export string, v jsvalue.Value) (modules.Options, error) {
	switch export = strings.TrimSpace(export); export {
	case "", "default":
		return modules.Options{Default: v}, nil
	case "=":
		return modules.Options{Assign: v}, nil
	default:
		return modules.Options{Const: []modules.NamedValue{{Name: export, Value: v}}}, nil
	}
}

func publishModule(ctx context.Context, cfg *config.Config, name, text string, stdout io.Writer) error {
	if !cfg.Publish.Enabled {
		return fmt.Errorf("publishing needs CLOSUREGEN_S3_ENDPOINT")
	}
	store, err := publish.NewStore(cfg.Publish.Store)
	if err != nil {
		return err
	}
	key, err := store.Put(ctx, name, text)
	if err != nil {
		return err
	}
	u, err := store.URL(ctx, name, time.Hour)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "published %s\n%s\n", key, u)
	return nil
}

func serveDev(cfg *config.Config, mgr *modules.Manager) error {
	h := withCORS(devserver.New(mgr, cfg.Dir).Handler())
	log.Printf("Serving %s as modules on %s", cfg.Dir, cfg.Addr)
	return http.ListenAndServe(cfg.Addr, h2c.NewHandler(h, &http2.Server{}))
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
