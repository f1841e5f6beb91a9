package broker

import (
	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

// Encode serializes v as JSON.
func Encode(v any) ([]byte, error) {
	b, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode json")
	}
	return b, nil
}

// Decode parses a JSON payload into v.
func Decode(data []byte, v any) error {
	if err := sonic.ConfigStd.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "decode json")
	}
	return nil
}
