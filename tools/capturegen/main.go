// bouchon/tools/capturegen/main.go

// capturegen writes a sample capture file for demos and manual testing of
// the import path. Output is deterministic so files can double as fixtures.
package main

import (
	"flag"
	"fmt"
	"os"

	"bouchon/pkg/capture"
	"bouchon/pkg/flow"
	"bouchon/pkg/scenario"
)

var hosts = []string{
	"api.example.com",
	"auth.example.com",
	"cdn.example.com",
	"payments.example.com",
	"search.example.com",
}

var paths = []string{
	"/v1/users",
	"/v1/login",
	"/assets/app.js",
	"/v1/charge",
	"/v1/query",
}

func main() {
	out := flag.String("out", "sample.fl", "Output capture file")
	numFlows := flag.Int("flows", 5, "Number of flows to generate")
	rulesPerFlow := flag.Int("rules", 2, "Number of Headers rules per flow")
	flag.Parse()

	sc := scenario.NewScenario("sample")
	for i := 0; i < *numFlows; i++ {
		f := sampleFlow(i)
		sc.AddFlow(f)
		rs, err := sc.RuleSetFor(f.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error building scenario: %v\n", err)
			os.Exit(1)
		}
		for j := 0; j < *rulesPerFlow; j++ {
			rs.AddRule("Headers", scenario.Fields{
				"name":  fmt.Sprintf("X-Sample-%d", j),
				"value": fmt.Sprintf("rule-%d-%d", i, j),
			})
		}
	}

	file, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	if err := capture.Dump(file, sc, capture.JSONCodec{}); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing capture: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d flows to %s\n", *numFlows, *out)
}

func sampleFlow(i int) *flow.Flow {
	f := flow.New()
	// Stable ids keep the output reproducible across runs.
	f.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", i)
	host := hosts[i%len(hosts)]
	f.Request = &flow.Request{
		Method:      "GET",
		Scheme:      "https",
		Host:        host,
		Port:        443,
		Path:        paths[i%len(paths)],
		HTTPVersion: "HTTP/1.1",
		Headers:     [][2]string{{"Host", host}, {"Accept", "application/json"}},
	}
	f.Response = &flow.Response{
		HTTPVersion: "HTTP/1.1",
		StatusCode:  200,
		Reason:      "OK",
		Headers:     [][2]string{{"Content-Type", "application/json"}},
		Content:     []byte(fmt.Sprintf(`{"sample":%d}`, i)),
	}
	return f
}
