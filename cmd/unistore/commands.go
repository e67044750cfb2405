package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/eniz1806/UniStore/pkg/access"
)

func runList(args []string) {
	if len(args) < 1 {
		fatal("ls requires a path")
	}
	path := args[0]
	listArgs := access.OpList{}
	for _, arg := range args[1:] {
		switch {
		case arg == "--recursive":
			listArgs.Recursive = true
		case strings.HasPrefix(arg, "--start-after="):
			listArgs.StartAfter = strings.TrimPrefix(arg, "--start-after=")
		default:
			fatal("unknown ls flag: " + arg)
		}
	}

	op := buildOperator()
	entries, err := op.ListAll(context.Background(), path, listArgs)
	if err != nil {
		fatal(err.Error())
	}
	if len(entries) == 0 {
		fmt.Println("No entries found.")
		return
	}

	headers := []string{"PATH", "KIND", "SIZE", "LAST MODIFIED"}
	var rows [][]string
	for _, e := range entries {
		kind := "file"
		size := formatSize(e.Meta.ContentLength)
		if e.Meta.IsDir() {
			kind = "dir"
			size = "-"
		}
		modified := "-"
		if !e.Meta.LastModified.IsZero() {
			modified = e.Meta.LastModified.Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{e.Path, kind, size, modified})
	}
	printTable(headers, rows)
	fmt.Printf("\n%d entries\n", len(entries))
}

func runStat(args []string) {
	if len(args) != 1 {
		fatal("stat requires a path")
	}
	op := buildOperator()
	meta, err := op.Stat(context.Background(), args[0], access.OpStat{})
	if err != nil {
		fatal(err.Error())
	}

	kind := "file"
	if meta.IsDir() {
		kind = "dir"
	}
	fmt.Printf("Path:          %s\n", args[0])
	fmt.Printf("Kind:          %s\n", kind)
	if !meta.IsDir() {
		fmt.Printf("Size:          %s\n", formatSize(meta.ContentLength))
	}
	if meta.ContentType != "" {
		fmt.Printf("Content-Type:  %s\n", meta.ContentType)
	}
	if meta.ETag != "" {
		fmt.Printf("ETag:          %s\n", meta.ETag)
	}
	if !meta.LastModified.IsZero() {
		fmt.Printf("Last-Modified: %s\n", meta.LastModified.Format(time.RFC3339))
	}
}

func runCat(args []string) {
	if len(args) != 1 {
		fatal("cat requires a path")
	}
	op := buildOperator()
	_, r, err := op.Read(context.Background(), args[0], access.OpRead{})
	if err != nil {
		fatal(err.Error())
	}
	defer r.Close()
	if _, err := io.Copy(os.Stdout, r); err != nil {
		fatal("read: " + err.Error())
	}
}

func runPut(args []string) {
	if len(args) != 2 {
		fatal("put requires a path and a local file")
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		fatal("read local file: " + err.Error())
	}
	op := buildOperator()
	if err := op.WriteAll(context.Background(), args[0], data, access.OpWrite{}); err != nil {
		fatal(err.Error())
	}
	fmt.Printf("Uploaded %s (%s)\n", args[0], formatSize(int64(len(data))))
}

func runGet(args []string) {
	if len(args) != 2 {
		fatal("get requires a path and a local file")
	}
	op := buildOperator()
	data, err := op.ReadAll(context.Background(), args[0])
	if err != nil {
		fatal(err.Error())
	}
	if err := os.WriteFile(args[1], data, 0644); err != nil {
		fatal("write local file: " + err.Error())
	}
	fmt.Printf("Downloaded %s (%s)\n", args[0], formatSize(int64(len(data))))
}

func runRemove(args []string) {
	if len(args) < 1 {
		fatal("rm requires a path")
	}
	all := len(args) > 1 && args[1] == "--all"
	op := buildOperator()
	var err error
	if all {
		err = op.RemoveAll(context.Background(), args[0])
	} else {
		err = op.Delete(context.Background(), args[0])
	}
	if err != nil {
		fatal(err.Error())
	}
	fmt.Printf("Deleted %s\n", args[0])
}

func runCopy(args []string) {
	if len(args) != 2 {
		fatal("cp requires a source and a destination")
	}
	op := buildOperator()
	if err := op.Copy(context.Background(), args[0], args[1]); err != nil {
		fatal(err.Error())
	}
	fmt.Printf("Copied %s -> %s\n", args[0], args[1])
}

func runMkdir(args []string) {
	if len(args) != 1 {
		fatal("mkdir requires a path")
	}
	op := buildOperator()
	if err := op.CreateDir(context.Background(), args[0], access.OpCreateDir{}); err != nil {
		fatal(err.Error())
	}
	fmt.Printf("Created %s\n", args[0])
}

func runPresign(args []string) {
	if len(args) < 2 {
		fatal("presign requires a kind (read, write or stat) and a path")
	}
	var kind access.PresignKind
	switch args[0] {
	case "read":
		kind = access.PresignRead
	case "write":
		kind = access.PresignWrite
	case "stat":
		kind = access.PresignStat
	default:
		fatal("unknown presign kind: " + args[0])
	}
	expires := 3600
	for _, arg := range args[2:] {
		if strings.HasPrefix(arg, "--expires=") {
			n, err := strconv.Atoi(strings.TrimPrefix(arg, "--expires="))
			if err != nil || n <= 0 {
				fatal("--expires requires a positive number of seconds")
			}
			expires = n
		}
	}

	op := buildOperator()
	req, err := op.Presign(context.Background(), args[1], access.OpPresign{
		Kind:   kind,
		Expire: time.Duration(expires) * time.Second,
	})
	if err != nil {
		fatal(err.Error())
	}
	fmt.Printf("%s %s\n", req.Method, req.URI)
	for name, values := range req.Header {
		for _, v := range values {
			fmt.Printf("  %s: %s\n", name, v)
		}
	}
}

func runSchemes() {
	schemes := newRegistry().Schemes()
	names := make([]string, 0, len(schemes))
	for _, s := range schemes {
		names = append(names, string(s))
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Println(n)
	}
}
