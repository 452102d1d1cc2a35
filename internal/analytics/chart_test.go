package analytics

import (
	"encoding/json"
	"testing"
)

func TestAssembleScenario(t *testing.T) {
	c := Assemble(Pivot(scenarioRows(), Month))
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"labels":["2024-01","2024-02","2024-03"],"datasets":[` +
		`{"label":"food","data":[10.00,0.00,5.00],"borderWidth":1},` +
		`{"label":"rent","data":[0.00,100.00,0.00],"borderWidth":1}]}`
	if string(b) != want {
		t.Fatalf("got  %s\nwant %s", b, want)
	}
}

func TestAssembleEmpty(t *testing.T) {
	b, err := json.Marshal(Assemble(Pivot(nil, Day)))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"labels":[],"datasets":[]}` {
		t.Fatalf("unexpected empty chart %s", b)
	}
}

func TestAssembleAggregates(t *testing.T) {
	values, err := Aggregate(scenarioRows(), Share)
	if err != nil {
		t.Fatal(err)
	}
	c := AssembleAggregates(values, Share)
	if len(c.Labels) != 2 || c.Labels[0] != "food" || len(c.Datasets) != 1 {
		t.Fatalf("unexpected chart %+v", c)
	}
	if got := c.Datasets[0].Data[0].String(); got != "13.04" {
		t.Fatalf("food share: got %s", got)
	}
	if got := c.Datasets[0].Data[1].String(); got != "86.96" {
		t.Fatalf("rent share: got %s", got)
	}
}
