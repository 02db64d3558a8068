package message

import (
	"testing"

	"github.com/danmuck/vicictl/internal/protocol"
	"github.com/danmuck/vicictl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func sampleConn() *Message {
	child := New().
		Set("local_ts", []string{"10.0.0.0/24"}).
		Set("esp_proposals", []string{"aes128gcm16", "default"})
	return New().
		Set("version", "2").
		Set("local_addrs", []string{"192.0.2.1"}).
		Set("children", New().Set("net", child)).
		Set("mobike", false)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := sampleConn()
	raw, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, in.ToMap(), out.ToMap())
	require.Equal(t, in.Keys(), out.Keys())

	again, err := Encode(out)
	require.NoError(t, err)
	require.Equal(t, raw, again)
}

func TestEncodeWireLayout(t *testing.T) {
	testlog.Start(t)
	m := New().
		Set("k", "v").
		Set("s", New()).
		Set("l", []string{"a"})
	raw, err := Codec{}.Serialize(m)
	require.NoError(t, err)
	require.Equal(t, []byte{
		ElementKeyValue, 1, 'k', 0, 1, 'v',
		ElementSectionStart, 1, 's', ElementSectionEnd,
		ElementListStart, 1, 'l', ElementListItem, 0, 1, 'a', ElementListEnd,
	}, raw)
}

func TestDecodeEmptyIsEmptyDocument(t *testing.T) {
	testlog.Start(t)
	m, err := Codec{}.Deserialize(nil)
	require.NoError(t, err)
	require.Equal(t, 0, m.Len())

	raw, err := Encode(nil)
	require.NoError(t, err)
	require.Empty(t, raw)
}

func TestDecodeMalformed(t *testing.T) {
	testlog.Start(t)
	cases := map[string]struct {
		raw  []byte
		want error
	}{
		"unknown element":   {[]byte{9}, protocol.ErrUnknownType},
		"short name":        {[]byte{ElementKeyValue, 4, 'a'}, ErrShortElement},
		"short value len":   {[]byte{ElementKeyValue, 1, 'a', 0}, ErrShortElement},
		"short value":       {[]byte{ElementKeyValue, 1, 'a', 0, 5, 'x'}, ErrShortElement},
		"open section":      {[]byte{ElementSectionStart, 1, 's'}, ErrUnbalanced},
		"extra end":         {[]byte{ElementSectionEnd}, ErrUnbalanced},
		"item outside list": {[]byte{ElementListItem, 0, 0}, ErrUnexpectedItem},
		"list end alone":    {[]byte{ElementListEnd}, ErrUnexpectedItem},
		"open list":         {[]byte{ElementListStart, 1, 'l', ElementListItem, 0, 0}, ErrUnterminatedList},
		"kv inside list":    {[]byte{ElementListStart, 1, 'l', ElementKeyValue, 1, 'a', 0, 0}, ErrUnterminatedList},
	}
	for name, tc := range cases {
		m, err := Decode(tc.raw)
		require.Nil(t, m, name)
		require.ErrorIs(t, err, protocol.ErrMalformedMessage, name)
		require.ErrorIs(t, err, tc.want, name)
	}
}

func TestDecodeRejectsDeepNesting(t *testing.T) {
	testlog.Start(t)
	var raw []byte
	for i := 0; i <= MaxDepth; i++ {
		raw = append(raw, ElementSectionStart, 1, 'x')
	}
	_, err := Decode(raw)
	require.ErrorIs(t, err, ErrTooDeep)
}

func TestEncodeRejectsOversizedFields(t *testing.T) {
	testlog.Start(t)
	name := make([]byte, protocol.MaxNameLen+1)
	for i := range name {
		name[i] = 'n'
	}
	_, err := Encode(New().Set(string(name), "v"))
	require.ErrorIs(t, err, protocol.ErrNameTooLong)

	_, err = Encode(New().Set("k", make([]byte, protocol.MaxValueLen+1)))
	require.ErrorIs(t, err, protocol.ErrValueTooLong)
}
