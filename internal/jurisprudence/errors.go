package jurisprudence

import "fmt"

func errRecursionExceeded(name string) error {
	return fmt.Errorf("contract %q: nested contract recursion depth exceeded", name)
}

func errUnknownContract(name string) error {
	return fmt.Errorf("unknown contract %q", name)
}
