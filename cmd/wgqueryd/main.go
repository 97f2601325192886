// Command wgqueryd serves the read-only HTTP query endpoint (spec §1
// "second component") over an already-populated segment.
package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/tammet/wgdb"
	"github.com/tammet/wgdb/httpapi"
)

func main() {
	dir := flag.String("dir", ".", "directory containing the segment file")
	name := flag.String("name", "wgdb.seg", "segment file name")
	addr := flag.String("addr", ":8089", "listen address")
	flag.Parse()

	seg, err := wgdb.AttachExisting(*dir, *name)
	if err != nil {
		log.Fatalf("attach: %v", err)
	}
	defer seg.Detach()

	srv := httpapi.NewServer(seg)
	log.Printf("wgqueryd listening on %s, segment %s/%s", *addr, *dir, *name)
	log.Fatal(http.ListenAndServe(*addr, srv.Handler()))
}
