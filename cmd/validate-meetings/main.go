// Command validate-meetings checks the legacy meetings archive for front
// matter and size problems. It exits 1 when any file has errors.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"waccamaw/internal/adapters/archive"
)

func main() {
	dir := flag.String("dir", "content/meetings", "Archive directory to validate")
	quiet := flag.Bool("quiet", false, "Only print files with errors")
	flag.Parse()

	os.Exit(run(os.Stdout, *dir, *quiet))
}

func run(out io.Writer, dir string, quiet bool) int {
	reports, err := archive.ValidateAll(os.DirFS(dir))
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return 2
	}
	if len(reports) == 0 {
		fmt.Fprintf(out, "No markdown files found in %s\n", dir)
		return 0
	}

	failed, warned := 0, 0
	for _, r := range reports {
		if !r.OK() {
			failed++
		}
		if len(r.Warnings) > 0 {
			warned++
		}
		if quiet && r.OK() {
			continue
		}
		status := "ok"
		if !r.OK() {
			status = "FAIL"
		}
		fmt.Fprintf(out, "%-4s %s\n", status, r.File)
		for _, e := range r.Errors {
			fmt.Fprintf(out, "     error: %s\n", e)
		}
		if !quiet {
			for _, w := range r.Warnings {
				fmt.Fprintf(out, "     warning: %s\n", w)
			}
		}
	}

	fmt.Fprintf(out, "\n%d files checked, %d with errors, %d with warnings\n", len(reports), failed, warned)
	if failed > 0 {
		return 1
	}
	return 0
}
