// account-tool inspects and prunes the record directory of a stopped or
// running account-service.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/baechuer/account-service/internal/application/account"
	"github.com/baechuer/account-service/internal/infrastructure/filestore"
)

const usage = `usage: account-tool [-dir DIR] <command> [args]

commands:
  list                          list every record
  show <key>                    print one record (password and code hidden)
  purge-demo                    delete all demo records
  purge-pending [-older-than D] delete unverified records older than D (default 24h)
`

func main() {
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, time.Now))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, now func() time.Time) int {
	fs := flag.NewFlagSet("account-tool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	defDir := os.Getenv("USERS_DIR")
	if defDir == "" {
		defDir = "./users_info"
	}
	dir := fs.String("dir", defDir, "record directory (USERS_DIR)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	store, err := filestore.New(*dir)
	if err != nil {
		fmt.Fprintf(stderr, "open %s: %v\n", *dir, err)
		return 1
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "list":
		err = list(ctx, store, stdout)
	case "show":
		if len(rest) != 1 {
			fmt.Fprintln(stderr, "show: exactly one key required")
			return 2
		}
		err = show(ctx, store, rest[0], stdout)
	case "purge-demo":
		var n int
		n, err = account.PurgeDemo(ctx, store)
		if err == nil {
			fmt.Fprintf(stdout, "deleted %d demo record(s)\n", n)
		}
	case "purge-pending":
		pf := flag.NewFlagSet("purge-pending", flag.ContinueOnError)
		pf.SetOutput(stderr)
		olderThan := pf.Duration("older-than", 24*time.Hour, "minimum age of a pending record")
		if err := pf.Parse(rest); err != nil {
			return 2
		}
		if *olderThan < 0 {
			fmt.Fprintln(stderr, "purge-pending: -older-than must not be negative")
			return 2
		}
		var n int
		n, err = account.PurgePending(ctx, store, *olderThan, now())
		if err == nil {
			fmt.Fprintf(stdout, "deleted %d pending record(s)\n", n)
		}
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 1
	}
	return 0
}

func list(ctx context.Context, idx account.RecordIndex, w io.Writer) error {
	entries, err := account.ListRecords(ctx, idx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tUSERNAME\tSTATE\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.Key, e.Record.Username, e.Record.State(), e.Record.CreatedTime.Format(time.RFC3339))
	}
	return tw.Flush()
}

func show(ctx context.Context, idx account.RecordIndex, key string, w io.Writer) error {
	rec, err := idx.Get(ctx, key)
	if err != nil {
		return err
	}
	if rec.Password != "" {
		rec.Password = "<redacted>"
	}
	if rec.Code != "" {
		rec.Code = "<redacted>"
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}
