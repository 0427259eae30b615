package ledger

import "testing"

func TestFolderURI(t *testing.T) {
	cases := map[string]string{
		`C:\Projetos\Obra A\1.ENTREGAS`:     "file:///C:/Projetos/Obra%20A/1.ENTREGAS/?open",
		"/srv/entregas/Se\u00e7\u00e3o/":    "file:///srv/entregas/Se%C3%A7%C3%A3o/?open",
		"/srv/AP/1.AP - Entrega-1-OBSOLETO": "file:///srv/AP/1.AP%20-%20Entrega-1-OBSOLETO/?open",
	}
	for in, want := range cases {
		if got := FolderURI(in); got != want {
			t.Errorf("FolderURI(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFolderFromURIReversesFolderURI(t *testing.T) {
	for _, dir := range []string{"/srv/AP/1.AP - Entrega-1-OBSOLETO", "/srv/entregas/Se\u00e7\u00e3o"} {
		got, ok := FolderFromURI(FolderURI(dir))
		if !ok || got != dir {
			t.Errorf("FolderFromURI(FolderURI(%q)) = %q, %v", dir, got, ok)
		}
	}
	if _, ok := FolderFromURI("https://example.com/x"); ok {
		t.Error("expected non-file link to be rejected")
	}
}

func TestStatusFromColor(t *testing.T) {
	cases := map[string]Status{
		"#92d050":  StatusNew,
		"FFFFD966": StatusRevised,
		"FF7C80":   StatusChanged,
		"#FFFFFF":  StatusUnchanged,
		"123456":   StatusUnknown,
	}
	for in, want := range cases {
		if got := statusFromColor(in); got != want {
			t.Errorf("statusFromColor(%q) = %v, want %v", in, got, want)
		}
	}
}
