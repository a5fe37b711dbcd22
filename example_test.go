package boundary_test

import (
	"context"
	"fmt"

	"github.com/wippyai/boundary"
	"github.com/wippyai/boundary/checked"
	"github.com/wippyai/boundary/cstring"
	"github.com/wippyai/boundary/errors"
)

func Example() {
	h := cstring.New("foo")
	fmt.Println(cstring.String(h), cstring.Len(h))
	cstring.Free(h)
	cstring.Free(nil)
	// Output: foo 3
}

func Example_checked() {
	ctx := context.Background()
	table := checked.New[cstring.Handle](cstring.Heap{})

	h, _ := table.Alloc(ctx, "foo")
	fmt.Println(table.Free(ctx, h))
	fmt.Println(errors.Is(table.Free(ctx, h), errors.ErrDoubleFree))
	fmt.Println(table.Live())
	// Output:
	// <nil>
	// true
	// 0
}

// roundTrip works with any backend through the interfaces.
func roundTrip[H comparable](ctx context.Context, b boundary.Boundary[H], s string) (string, error) {
	h, err := b.Alloc(ctx, s)
	if err != nil {
		return "", err
	}
	defer b.Free(ctx, h)
	return b.Read(ctx, h)
}

func Example_generic() {
	s, err := roundTrip[cstring.Handle](context.Background(), cstring.Heap{}, "日本語")
	fmt.Println(s, err)
	// Output: 日本語 <nil>
}
