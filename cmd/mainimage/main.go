package main

import (
	"flag"

	"github.com/wb-go/wbf/zlog"

	"github.com/artemlk/uniqimg/internal/mainimage"
)

func main() {
	root := flag.String("root", ".", "directory whose subfolders hold product assets")
	name := flag.String("name", "main_01.jpg", "file name of the main image inside each folder")
	size := flag.Int("size", 800, "required square size in pixels")
	flag.Parse()

	zlog.Init()

	stats, err := mainimage.EnsureSize(*root, *name, *size)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("main image sweep failed")
	}
	if stats.Errors > 0 {
		zlog.Logger.Warn().Int("errors", stats.Errors).Msg("sweep finished with errors")
	}
}
