// logicbits/tools/event_stressor/main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"rgehrsitz/logicbits/pkg/logging"
	"rgehrsitz/logicbits/pkg/predicate"
	"rgehrsitz/logicbits/pkg/store"
)

type options struct {
	redisAddr  string
	channel    string
	schemaFile string
	rate       int
	count      int
	seed       uint64
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("event_stressor", flag.ContinueOnError)
	fs.StringVar(&o.redisAddr, "redis", "localhost:6379", "Redis address")
	fs.StringVar(&o.channel, "channel", "logicbits_events", "Channel to publish records on")
	fs.StringVar(&o.schemaFile, "schema", "schema.yaml", "Predicate schema describing record fields")
	fs.IntVar(&o.rate, "rate", 10, "Number of records per second")
	fs.IntVar(&o.count, "count", 0, "Stop after this many records (0 runs until interrupted)")
	fs.Uint64Var(&o.seed, "seed", 0, "Random seed (0 picks one)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.rate <= 0 {
		return o, fmt.Errorf("rate must be positive, got %d", o.rate)
	}
	return o, nil
}

func loadSchema(path string) (*predicate.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var schema predicate.Schema
	if err := predicate.Decode(data, predicate.FormatFromPath(path), &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

// recordGenerator produces records whose fields hit each predicate's true and
// false side roughly evenly.
type recordGenerator struct {
	faker  *gofakeit.Faker
	schema *predicate.Schema
}

func (g *recordGenerator) record() map[string]interface{} {
	rec := make(map[string]interface{})
	for _, d := range g.schema.Predicates {
		switch d.Kind {
		case predicate.KindEquals:
			if g.faker.Bool() {
				rec[d.Field] = d.Value
			} else if _, set := rec[d.Field]; !set {
				rec[d.Field] = g.faker.Word()
			}
		case predicate.KindFlag:
			rec[d.Field] = g.faker.Bool()
		case predicate.KindZero:
			rec[d.Field] = g.faker.IntRange(0, 3)
		case predicate.KindThresholds:
			top := 1.0
			for _, t := range d.Thresholds {
				top = max(top, t)
			}
			rec[d.Field] = g.faker.Float64Range(0, top*1.25)
		case predicate.KindScript:
			for _, f := range d.Fields {
				rec[f] = g.faker.Float64Range(0, 100)
			}
		}
	}
	return rec
}

func publish(ctx context.Context, s store.Store, gen *recordGenerator, o options) (int, error) {
	ticker := time.NewTicker(time.Second / time.Duration(o.rate))
	defer ticker.Stop()

	sent := 0
	for o.count == 0 || sent < o.count {
		select {
		case <-ctx.Done():
			return sent, nil
		case <-ticker.C:
		}
		rec := gen.record()
		if err := s.PublishRecord(ctx, o.channel, rec); err != nil {
			logging.Logger.Error().Err(err).Msg("Error publishing record")
			continue
		}
		sent++
		logging.Logger.Debug().Interface("record", rec).Msg("Published record")
	}
	return sent, nil
}

func run(ctx context.Context, args []string) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	schema, err := loadSchema(o.schemaFile)
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}

	s, err := store.NewRedisStore(ctx, o.redisAddr, "", 0)
	if err != nil {
		return err
	}
	defer s.Close()

	seed := o.seed
	if seed == 0 {
		seed = gofakeit.Uint64()
	}
	gen := &recordGenerator{faker: gofakeit.New(seed), schema: schema}

	logging.Logger.Info().Str("redis", o.redisAddr).Str("channel", o.channel).Int("rate", o.rate).Msg("Publishing records")
	sent, err := publish(ctx, s, gen, o)
	logging.Logger.Info().Int("sent", sent).Msg("Stressor stopped")
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
