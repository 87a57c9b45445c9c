// logicbits/tools/event_console/main.go

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"rgehrsitz/logicbits/pkg/store"
)

const usage = "commands: publish <channel> <field=value>... | counters | reset | exit"

func main() {
	addr := flag.String("redis", "localhost:6379", "Redis address")
	flag.Parse()

	ctx := context.Background()
	s, err := store.NewRedisStore(ctx, *addr, "", 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	startCLI(ctx, s, os.Stdin, os.Stdout)
}

func startCLI(ctx context.Context, s store.Store, in io.Reader, out io.Writer) {
	fmt.Fprintln(out, usage)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "exit" {
			return
		}
		if input == "" {
			continue
		}
		if err := processCommand(ctx, s, input, out); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}

func processCommand(ctx context.Context, s store.Store, input string, out io.Writer) error {
	parts := strings.Fields(input)
	switch parts[0] {
	case "publish":
		if len(parts) < 3 {
			return fmt.Errorf("invalid command. Use 'publish <channel> <field=value>...'")
		}
		record, err := parseRecord(parts[2:])
		if err != nil {
			return err
		}
		if err := s.PublishRecord(ctx, parts[1], record); err != nil {
			return err
		}
		fmt.Fprintf(out, "Published %d fields to %s\n", len(record), parts[1])
	case "counters":
		counters, err := s.Counters(ctx)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(counters))
		for name := range counters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "%s: %d\n", name, counters[name])
		}
	case "reset":
		if err := s.ResetCounters(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Counters reset")
	default:
		return fmt.Errorf("invalid command %q; %s", parts[0], usage)
	}
	return nil
}

// parseRecord turns field=value pairs into a record. Values that parse as
// booleans or numbers are typed; everything else stays a string.
func parseRecord(pairs []string) (map[string]interface{}, error) {
	record := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected field=value", pair)
		}
		if value == "true" || value == "false" {
			record[key] = value == "true"
		} else if num, err := strconv.ParseFloat(value, 64); err == nil {
			record[key] = num
		} else {
			record[key] = value
		}
	}
	return record, nil
}
