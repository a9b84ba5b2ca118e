package main

import (
	"reflect"
	"testing"
)

func TestCommandArgs(t *testing.T) {
	cases := []struct {
		in   []string
		want []string
	}{
		{nil, []string{"serve"}},
		{[]string{}, []string{"serve"}},
		{[]string{"migrate", "status"}, []string{"migrate", "status"}},
		{[]string{"serve"}, []string{"serve"}},
	}
	for _, tc := range cases {
		if got := commandArgs(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("commandArgs(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
