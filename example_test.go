package speclog_test

import (
	"context"
	"fmt"
	"os"

	"github.com/phuonguno98/speclog"
)

// Example demonstrates basic usage of speclog as a Go library.
func Example() {
	// Log everything from "db" at debug, the rest at warn.
	log, err := speclog.New(speclog.Config{
		SpecString: "warn, db=debug",
		Target:     speclog.TargetStdout,
		Stdout:     os.Stdout,
	})
	if err != nil {
		panic(err)
	}
	defer log.Close()

	ctx := speclog.WithModule(context.Background(), "db::pool")
	log.Debug(ctx, "opened %d connections", 4)
	log.Module("http").Info("dropped: http is at warn")
	log.Module("http").Warn("slow request")

	// Thay đổi spec khi đang chạy.
	if err := log.Handle().ParseNewSpec("info"); err != nil {
		panic(err)
	}
	log.Module("http").Info("now visible")
	log.Debug(ctx, "dropped: db is back at info")

	// Output:
	// DEBUG [db::pool] opened 4 connections
	// WARN [http] slow request
	// INFO [http] now visible
}

// ExampleParseLogSpec shows how problems in a spec are reported.
func ExampleParseLogSpec() {
	spec, err := speclog.ParseLogSpec("info, db::pool=trace, bad-name=debug")
	fmt.Println(spec)
	fmt.Println(err != nil)
	fmt.Println(spec.Enabled(speclog.TRACE, "db::pool::conn"))
	// Output:
	// db::pool=trace, info
	// true
	// true
}
