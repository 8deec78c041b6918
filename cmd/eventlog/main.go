/**
 * Copyright 2024 Confluent Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command eventlog ingests the raw master log into per-kind event logs and
// reads them back.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/moviestream/eventlog/eventlog"
	"github.com/moviestream/eventlog/eventlog/ingest"
	"github.com/moviestream/eventlog/schemaregistry"
)

const usage = `Usage: %s <command> <args..>
  ingest <schemas-dir> <master.csv> <out-dir>
  dump   <schemas-dir> <out-dir> <kind> [reader-version]
  export <schemas-dir> <out-dir> <kind> <file.ocf>
  compat <schemas-dir> <kind> <writer-version> <reader-version>
`

var commands = map[string]struct {
	args int
	run  func(ctx context.Context, env *environment, args []string) error
}{
	"ingest": {3, runIngest},
	"dump":   {3, runDump},
	"export": {4, runExport},
	"compat": {4, runCompat},
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok || len(os.Args)-2 < cmd.args {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	env, err := loadEnvironment(os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %s\n", err)
		os.Exit(1)
	}
	log.SetLevel(env.logLevel)
	log.WithField("config", env.settings()).Debug("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err = cmd.run(ctx, env, os.Args[2:]); err != nil {
		log.WithError(err).Errorf("%s failed", os.Args[1])
		stop()
		os.Exit(1)
	}
}

func openRegistry(env *environment, dir string) (schemaregistry.Client, error) {
	client, err := schemaregistry.NewClient(env.registry)
	if err != nil {
		return nil, err
	}
	loaded, err := schemaregistry.LoadDir(client, dir)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"dir": dir, "schemas": len(loaded)}).Debug("schemas loaded")
	return client, nil
}

func runIngest(ctx context.Context, env *environment, args []string) error {
	client, err := openRegistry(env, args[0])
	if err != nil {
		return err
	}
	f, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer f.Close()
	sinks, err := eventlog.NewFileSinks(args[2])
	if err != nil {
		return err
	}

	opts := append(env.options(), eventlog.WithSync(env.sync))
	for kind, expr := range env.filters {
		opts = append(opts, eventlog.WithFilter(kind, expr))
	}
	writer, err := eventlog.NewWriter(client, sinks, opts...)
	if err != nil {
		sinks.Close()
		return err
	}
	defer writer.Close()

	src, err := ingest.NewCSVSource(f, log.StandardLogger())
	if err != nil {
		return err
	}
	stats, err := writer.WriteAll(ctx, src)
	total := stats.Total()
	fmt.Printf("%d written, %d filtered, %d failed, %d skipped\n",
		total.Written, total.Filtered, total.Failed, src.Skipped())
	return err
}

func openReader(env *environment, schemasDir, outDir string, kindName string) (*eventlog.Reader, schemaregistry.Client, schemaregistry.Kind, error) {
	client, err := openRegistry(env, schemasDir)
	if err != nil {
		return nil, nil, "", err
	}
	kind, err := schemaregistry.ParseKind(kindName)
	if err != nil {
		return nil, nil, "", err
	}
	sinks, err := eventlog.NewFileSinks(outDir)
	if err != nil {
		return nil, nil, "", err
	}
	reader, err := eventlog.NewReader(client, sinks, env.options()...)
	if err != nil {
		return nil, nil, "", err
	}
	return reader, client, kind, nil
}

func runDump(ctx context.Context, env *environment, args []string) error {
	reader, client, kind, err := openReader(env, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	version := 0
	if len(args) > 3 {
		if version, err = strconv.Atoi(args[3]); err != nil {
			return fmt.Errorf("reader version: %w", err)
		}
	} else {
		latest, err := client.Latest(kind)
		if err != nil {
			return err
		}
		version = latest.Version
	}

	it, err := reader.OpenVersion(kind, version)
	if err != nil {
		return err
	}
	defer it.Close()
	for it.Next() {
		if err = ctx.Err(); err != nil {
			return err
		}
		fmt.Printf("v%d %s\n", it.WriterVersion(), it.Record())
	}
	return it.Err()
}

func runExport(ctx context.Context, env *environment, args []string) error {
	reader, client, kind, err := openReader(env, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	latest, err := client.Latest(kind)
	if err != nil {
		return err
	}
	out, err := os.Create(args[3])
	if err != nil {
		return err
	}
	n, err := eventlog.Export(ctx, reader, kind, latest.Schema, out, env.codec)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"kind":    kind,
		"version": latest.Version,
		"records": n,
		"codec":   env.codec,
	}).Info("exported")
	return nil
}

func runCompat(_ context.Context, env *environment, args []string) error {
	client, err := openRegistry(env, args[0])
	if err != nil {
		return err
	}
	kind, err := schemaregistry.ParseKind(args[1])
	if err != nil {
		return err
	}
	var versions [2]int
	for i, arg := range args[2:4] {
		if versions[i], err = strconv.Atoi(arg); err != nil {
			return fmt.Errorf("version %q: %w", arg, err)
		}
	}
	writer, err := client.Get(kind, versions[0])
	if err != nil {
		return err
	}
	reader, err := client.Get(kind, versions[1])
	if err != nil {
		return err
	}

	result := client.Checker().Check(writer.Schema, reader.Schema)
	level := result.Level()
	transition := client.Checker().Transition(writer.Schema, reader.Schema)
	lineage := transition.Level()
	fmt.Printf("%s v%d -> v%d: backward=%t forward=%t level=%s lineage=%s\n",
		kind, versions[0], versions[1], result.Backward, result.Forward, level.String(), lineage.String())
	for _, v := range result.Violations() {
		fmt.Printf("  %s\n", v)
	}
	return nil
}
