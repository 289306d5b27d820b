// Walks a skip list through a few inserts, lookups and deletes, then prints the keys left in it.

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/nobletooth/skipset/pkg/skiplist"
	"github.com/nobletooth/skipset/pkg/utils"
)

// run exercises a skip list and writes its remaining keys to `out`, space separated.
func run(out io.Writer) error {
	list := skiplist.New[int]()

	var errs []error
	check := func(ok bool, step string) {
		if !ok {
			errs = append(errs, fmt.Errorf("unexpected result of %s", step))
		}
	}
	check(list.Insert(10), "insert 10")
	check(list.Insert(20), "insert 20")
	check(!list.Insert(10), "inserting duplicate 10")
	check(list.Contains(20), "contains 20")
	check(!list.Contains(30), "contains 30")
	check(list.Delete(10), "delete 10")
	check(!list.Delete(10), "deleting absent 10")
	if err := errors.Join(errs...); err != nil {
		return err
	}

	remaining := make([]string, 0, list.Len())
	for key := range list.All() {
		remaining = append(remaining, strconv.Itoa(key))
	}
	_, err := fmt.Fprintln(out, strings.Join(remaining, " "))
	return err
}

func main() {
	flag.Parse()
	utils.InitLogging()
	if err := run(os.Stdout); err != nil {
		slog.Error("Skip list demo failed.", "err", err)
		os.Exit(1)
	}
}
