package source_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	fetchcache "github.com/gabrielnfc/eivoucasar-sub001"
	"github.com/gabrielnfc/eivoucasar-sub001/source"
)

type User struct {
	ID   int
	Name string
}

func ExampleMultiLoaderFunc() {
	users := map[int]User{
		1: {ID: 1, Name: "Alice"},
		2: {ID: 2, Name: "Bob"},
	}
	loader := source.MultiLoaderFunc[int, User](func(_ context.Context, ids []int) (map[int]User, error) {
		found := make(map[int]User, len(ids))
		for _, id := range ids {
			if user, ok := users[id]; ok {
				found[id] = user
			}
		}
		return found, nil
	})

	user, err := loader.Load(context.Background(), 1)
	fmt.Println(user.Name, err)

	_, err = loader.Load(context.Background(), 3)
	fmt.Println(errors.Is(err, fetchcache.ErrNotFound))
	// Output:
	// Alice <nil>
	// true
}

func ExampleRetryLoader() {
	failures := 2
	flaky := fetchcache.LoaderFunc[int, string](func(context.Context, int) (string, error) {
		if failures > 0 {
			failures--
			return "", errors.New("connection reset")
		}
		return "Alice & Bob", nil
	})

	loader := &source.TimeoutLoader[int, string]{
		Loader:  &source.RetryLoader[int, string]{Loader: flaky, Attempts: 3, Backoff: time.Millisecond},
		Timeout: time.Second,
	}

	value, err := loader.Load(context.Background(), 1)
	fmt.Println(value, err)
	// Output:
	// Alice & Bob <nil>
}
