package main

import (
	"fmt"
	"io"

	"github.com/sendrec/vidwidget/internal/auth"
)

func cmdGenKey(out io.Writer) error {
	key, err := auth.GenerateKey()
	if err != nil {
		return err
	}
	hash, err := auth.HashKey(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "key:  %s\nhash: %s\n\nSet ADMIN_API_KEY_HASH to the hash and keep the key secret.\n", key, hash)
	return nil
}
