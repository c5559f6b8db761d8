package netinfo

import "testing"

func TestBuildURLsPrefersLAN(t *testing.T) {
	addrs := Addresses{LAN: "192.168.1.5", Mesh: "100.64.0.1"}
	urls := BuildURLs(addrs, 7777, "tok")

	if urls.Primary != urls.LAN {
		t.Errorf("Primary = %q, want LAN %q", urls.Primary, urls.LAN)
	}
	if urls.LAN != "http://192.168.1.5:7777?token=tok" {
		t.Errorf("LAN = %q", urls.LAN)
	}
	if urls.Mesh != "http://100.64.0.1:7777?token=tok" {
		t.Errorf("Mesh = %q", urls.Mesh)
	}
}

func TestBuildURLsFallsBackToMesh(t *testing.T) {
	addrs := Addresses{Mesh: "100.64.0.1"}
	urls := BuildURLs(addrs, 7777, "tok")

	if urls.Primary != urls.Mesh {
		t.Errorf("Primary = %q, want Mesh %q", urls.Primary, urls.Mesh)
	}
	if urls.LAN != "" {
		t.Errorf("LAN = %q, want empty", urls.LAN)
	}
}

func TestBuildURLsFallsBackToLoopback(t *testing.T) {
	urls := BuildURLs(Addresses{}, 7777, "tok")

	if urls.Primary != "http://127.0.0.1:7777?token=tok" {
		t.Errorf("Primary = %q", urls.Primary)
	}
	if urls.LAN != "" || urls.Mesh != "" {
		t.Errorf("expected empty LAN/Mesh, got LAN=%q Mesh=%q", urls.LAN, urls.Mesh)
	}
}

func TestDiscoverDoesNotError(t *testing.T) {
	if _, err := Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
}
