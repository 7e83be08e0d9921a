package main

import (
	"flag"
	"os"

	"lobfeed/domain/feed"
	"lobfeed/domain/orderbook"
	"lobfeed/infra/config"
	applog "lobfeed/infra/log"
	"lobfeed/jobs/printer"
	"lobfeed/service"
	"lobfeed/snapshot"
)

// replay re-runs a capture journal through fresh handlers and reports
// whether books rebuilt from deltas agreed with the snapshots that followed
// each resubscription. With -dump it prints a post-mortem dump instead.
func main() {
	journalDir := flag.String("journal", "./data/journal", "capture journal directory")
	dumpPath := flag.String("dump", "", "post-mortem dump to print instead of replaying")
	depth := flag.Int("depth", 5, "orders per side to print")
	perInstrument := flag.Bool("per-instrument-snapshots", false, "gate deltas per instrument")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := applog.NewLogger(config.Logging{Level: *level, Pretty: true})
	prn := printer.New(os.Stdout, nil, printer.Options{Books: true, Depth: *depth}, logger)

	// ---------------- Dump ----------------

	if *dumpPath != "" {
		d, err := snapshot.Load(*dumpPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("load dump")
		}
		books, err := d.Rebuild()
		if err != nil {
			logger.Fatal().Err(err).Msg("rebuild dump")
		}
		logger.Info().
			Time("created", d.Created).
			Uint64("journal_seq", d.JournalSeq).
			Str("reason", d.Reason).
			Msg("post-mortem dump")
		prn.PrintBooks(tops(books, *depth))
		return
	}

	// ---------------- Replay ----------------

	newHandler := func() *feed.Handler {
		if *perInstrument {
			return feed.New(feed.WithPerInstrumentSnapshots())
		}
		return feed.New()
	}

	rep, books, err := service.ReplayJournal(*journalDir, newHandler, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("replay failed")
	}

	prn.PrintBooks(tops(books, *depth))
	logger.Info().
		Int("messages", rep.Messages).
		Int("resets", rep.Resets).
		Int("failures", rep.Failures).
		Int("fills", rep.Fills).
		Int("comparisons", rep.Comparisons).
		Int("skipped", rep.Skipped).
		Uints32("mismatched_clob_pairs", rep.Mismatches).
		Uint64("last_seq", rep.LastSeq).
		Msg("replay complete")

	if len(rep.Mismatches) > 0 {
		os.Exit(1)
	}
}

func tops(books map[uint32]*orderbook.OrderBook, depth int) map[uint32]orderbook.TopOfBook {
	out := make(map[uint32]orderbook.TopOfBook, len(books))
	for clob, b := range books {
		out[clob] = b.Top(depth)
	}
	return out
}
