package resolver

import (
	"testing"

	"github.com/k0sproject/dig"
	"github.com/stretchr/testify/require"
)

func TestChartParameterSetRejectsDuplicates(t *testing.T) {
	req := require.New(t)

	params := NewChartParameterSet()
	req.NoError(params.Set("global.tango_host", "databaseds:10000"))
	req.Error(params.Set("global.tango_host", "other:10000"))
}

func TestChartParameterSetRejectsMetacharacters(t *testing.T) {
	params := NewChartParameterSet()
	for _, value := range []string{
		"foo;rm -rf /",
		"foo`id`",
		"$(whoami)",
		"a|b",
		"a\nb",
	} {
		if err := params.Set("global.tango_host", value); err == nil {
			t.Errorf("Set(%q) accepted a value with shell metacharacters", value)
		}
	}
}

func TestChartParameterSetOrder(t *testing.T) {
	req := require.New(t)

	params := NewChartParameterSet()
	req.NoError(params.Set("b", "2"))
	req.NoError(params.Set("a", "1"))
	req.NoError(params.Set("c", "3"))

	got := params.Params()
	req.Equal([]Param{{"b", "2"}, {"a", "1"}, {"c", "3"}}, got)
}

func TestChartParameterSetValues(t *testing.T) {
	params := NewChartParameterSet()
	for _, kv := range [][2]string{
		{"global.minikube", "false"},
		{"global.tango_host", "databaseds:10000"},
		{"midcbf.image.tag", "1.2.3"},
	} {
		if err := params.Set(kv[0], kv[1]); err != nil {
			t.Fatal(err)
		}
	}

	want := dig.Mapping{
		"global": dig.Mapping{
			"minikube":   "false",
			"tango_host": "databaseds:10000",
		},
		"midcbf": dig.Mapping{
			"image": dig.Mapping{
				"tag": "1.2.3",
			},
		},
	}

	require.Equal(t, want, params.Values())
}
