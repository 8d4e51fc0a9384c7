package pak

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"
)

func writeTestPak(t *testing.T, dir string, entries map[string][]byte) string {
	t.Helper()

	path := filepath.Join(dir, "test.pak")
	var data bytes.Buffer
	var index bytes.Buffer

	offsets := make(map[string]int64)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	// deterministic order for the test
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if names[j] < names[i] {
				names[i], names[j] = names[j], names[i]
			}
		}
	}

	for _, name := range names {
		offsets[name] = int64(data.Len())
		data.Write(entries[name])
	}
	for _, name := range names {
		binary.Write(&index, binary.LittleEndian, uint16(len(name)))
		index.WriteString(name)
		binary.Write(&index, binary.LittleEndian, offsets[name])
		binary.Write(&index, binary.LittleEndian, int64(len(entries[name])))
		binary.Write(&index, binary.LittleEndian, uint8(0))
	}

	indexOffset := int64(data.Len())
	data.Write(index.Bytes())

	var footer bytes.Buffer
	binary.Write(&footer, binary.LittleEndian, footerMagic)
	binary.Write(&footer, binary.LittleEndian, indexOffset)
	binary.Write(&footer, binary.LittleEndian, int64(index.Len()))
	binary.Write(&footer, binary.LittleEndian, uint32(len(names)))
	data.Write(footer.Bytes())

	if err := os.WriteFile(path, data.Bytes(), 0o644); err != nil {
		t.Fatalf("write test pak: %v", err)
	}
	return path
}

func TestOpenAndReadUTF8ModInfo(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPak(t, dir, map[string][]byte{
		"modinfo.json": []byte(`{"Name":"Test Mod","FolderName":"TestMod"}`),
		"Other.Asset":  []byte("payload"),
	})

	a, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	if _, ok := a.Entry("OTHER.ASSET"); !ok {
		t.Error("expected case-insensitive entry lookup to find Other.Asset")
	}

	info, err := a.ReadModInfo()
	if err != nil {
		t.Fatalf("read modinfo: %v", err)
	}
	if info["name"] != "Test Mod" {
		t.Errorf("name = %v, want Test Mod", info["name"])
	}
	if info["foldername"] != "TestMod" {
		t.Errorf("foldername = %v, want TestMod", info["foldername"])
	}
}

func TestReadUCS2LEModInfo(t *testing.T) {
	dir := t.TempDir()

	jsonStr := `{"Name":"Wide Mod"}`
	u16 := utf16.Encode([]rune(jsonStr))
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFE})
	for _, c := range u16 {
		binary.Write(&buf, binary.LittleEndian, c)
	}

	path := writeTestPak(t, dir, map[string][]byte{
		"modinfo.json": buf.Bytes(),
	})

	a, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	info, err := a.ReadModInfo()
	if err != nil {
		t.Fatalf("read modinfo: %v", err)
	}
	if info["name"] != "Wide Mod" {
		t.Errorf("name = %v, want Wide Mod", info["name"])
	}
}

func TestOpenEntryMissing(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPak(t, dir, map[string][]byte{"a": []byte("x")})

	a, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	if _, err := a.OpenEntry("missing"); err == nil {
		t.Error("expected error for missing entry")
	}
}
