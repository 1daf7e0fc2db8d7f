package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/MarkitMedical/FuzzySearch/pkg/grpc"
	"github.com/MarkitMedical/FuzzySearch/pkg/proto"
)

// admincli is a CLI client for the searcher's internal admin RPC
// surface (pkg/grpc, not the public HTTP API).
//
// Usage:
//
//	admincli -addr localhost:9091 stats
//	admincli -addr localhost:9091 reindex --id rec-1 --field title=hello
func main() {
	addr := flag.String("addr", "localhost:9091", "admin rpc address")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	client, err := grpc.Dial(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer client.Close()

	switch args[0] {
	case "stats":
		cmdStats(client)
	case "reindex":
		cmdReindex(client, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func cmdStats(client *grpc.Client) {
	var resp proto.StatsResponse
	if err := client.Call("Admin.Stats", &proto.StatsRequest{}, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "stats call failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Records:                    %d\n", resp.RecordCount)
	fmt.Printf("Avg tokens/field:           %.2f\n", resp.AvgFieldTokens)
	fmt.Printf("Assignment solver fallbacks: %d\n", resp.AssignmentSolverFallbacks)
}

func cmdReindex(client *grpc.Client, args []string) {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	id := fs.String("id", "", "record id")
	var fieldFlags stringSlice
	fs.Var(&fieldFlags, "field", "field=value pair, repeatable")
	fs.Parse(args)

	if *id == "" {
		fmt.Fprintln(os.Stderr, "error: --id is required")
		os.Exit(1)
	}

	fields := make(map[string]string, len(fieldFlags))
	for _, kv := range fieldFlags {
		name, value, ok := splitKV(kv)
		if !ok {
			fmt.Fprintf(os.Stderr, "invalid --field %q, expected field=value\n", kv)
			os.Exit(1)
		}
		fields[name] = value
	}

	req := &proto.ReindexRequest{Record: proto.Record{ID: *id, Fields: fields}}
	var resp proto.ReindexResponse
	if err := client.Call("Admin.Reindex", req, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "reindex call failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(resp.Message)
}

func splitKV(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

type stringSlice []string

func (s *stringSlice) String() string {
	data, _ := json.Marshal(*s)
	return string(data)
}

func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: admincli -addr <host:port> <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  stats                            Fetch source store statistics")
	fmt.Fprintln(os.Stderr, "  reindex --id <id> --field k=v... Push a single record directly into the store")
}
