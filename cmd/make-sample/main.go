package main

import (
	"flag"
	"fmt"
	"log"

	"smartpt/internal/sample"
)

func main() {
	var out string
	flag.StringVar(&out, "o", sample.DefaultPath, "Where to write the sample inventory workbook")
	flag.Parse()

	if err := sample.Write(out); err != nil {
		log.Fatalf("failed to write sample workbook: %v", err)
	}
	fmt.Printf("wrote %d items to %s\n", len(sample.Inventory), out)
}
