package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupArgs(t *testing.T) {
	flags := []string{"--add", "--ids", "--remove", "--set"}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "values until next option",
			args: []string{"--add", "properties.rules", "name=a", "priority=100", "-g", "rg"},
			want: []string{"--add", "properties.rules\x1fname=a\x1fpriority=100", "-g", "rg"},
		},
		{
			name: "negative index is a value",
			args: []string{"--remove", "properties.rules", "-1", "--dry-run"},
			want: []string{"--remove", "properties.rules\x1f-1", "--dry-run"},
		},
		{
			name: "inline value",
			args: []string{"--set=tags.a=1", "tags.b=2"},
			want: []string{"--set", "tags.a=1\x1ftags.b=2"},
		},
		{
			name: "repeated flag",
			args: []string{"--set", "a=1", "--set", "b=2"},
			want: []string{"--set", "a=1", "--set", "b=2"},
		},
		{
			name: "empty value",
			args: []string{"--set", "", "-n", "x"},
			want: []string{"--set", "", "-n", "x"},
		},
		{
			name: "no values",
			args: []string{"--ids", "--name", "x"},
			want: []string{"--ids", "--name", "x"},
		},
		{
			name: "other flags untouched",
			args: []string{"--name", "a", "b"},
			want: []string{"--name", "a", "b"},
		},
		{
			name: "stops at terminator",
			args: []string{"--", "--set", "a=1", "b=2"},
			want: []string{"--", "--set", "a=1", "b=2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, GroupArgs(tt.args, flags))
		})
	}
}

func TestIsValue(t *testing.T) {
	for arg, want := range map[string]bool{
		"":          true,
		"name=a":    true,
		"-1":        true,
		"-12":       true,
		"-1x":       false,
		"-":         false,
		"--1":       false,
		"-g":        false,
		"--dry-run": false,
	} {
		require.Equal(t, want, isValue(arg), arg)
	}
}

func TestGroupsValue(t *testing.T) {
	var v groupsValue
	require.NoError(t, v.Set("properties.rules\x1fname=a"))
	require.NoError(t, v.Set("tags"))

	require.Equal(t, [][]string{{"properties.rules", "name=a"}, {"tags"}}, v.groups)
	require.Equal(t, "properties.rules name=a, tags", v.String())
	require.Equal(t, "values", v.Type())
}
