package cmd

import (
	"fmt"
	"strconv"
)

// nonNegativeInt is a pflag.Value that rejects negative or non-numeric input
// at parse time, before the command runs.
type nonNegativeInt int

func (n *nonNegativeInt) String() string { return strconv.Itoa(int(*n)) }

func (n *nonNegativeInt) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%q is not an integer", s)
	}
	if v < 0 {
		return fmt.Errorf("value must be a nonnegative integer, got %d", v)
	}
	*n = nonNegativeInt(v)
	return nil
}

func (n *nonNegativeInt) Type() string { return "uint" }
