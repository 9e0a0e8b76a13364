package config

import "testing"

func setMongoEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGO_HOST", "mongodb://localhost:27017")
	t.Setenv("MONGO_DATABASE", "crib")
}

func TestLoadMongo(t *testing.T) {
	setMongoEnv(t)
	t.Setenv("MONGO_COLLECTION_HARDWARE", "hw")
	t.Setenv("MONGO_COLLECTION_CHECKOUTS", "co")
	t.Setenv("SERVICE_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Driver != DriverMongo || cfg.MongoDatabase != "crib" {
		t.Errorf("got %+v", cfg)
	}
	if cfg.HardwareCollection != "hw" || cfg.CheckoutsCollection != "co" {
		t.Errorf("collections: got %q/%q", cfg.HardwareCollection, cfg.CheckoutsCollection)
	}
	if cfg.Addr() != ":9090" {
		t.Errorf("Addr: got %q", cfg.Addr())
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SERVICE_PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServicePort != 8080 {
		t.Errorf("port default: got %d", cfg.ServicePort)
	}
	if cfg.HardwareCollection != "hardware_sets" || cfg.CheckoutsCollection != "project_checkouts" {
		t.Errorf("collection defaults: got %q/%q", cfg.HardwareCollection, cfg.CheckoutsCollection)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing mongo host", map[string]string{
			"STORE_DRIVER": "mongo", "MONGO_HOST": "", "MONGO_DATABASE": "crib",
		}},
		{"host not a connection string", map[string]string{
			"STORE_DRIVER": "mongo", "MONGO_HOST": "localhost:27017", "MONGO_DATABASE": "crib",
		}},
		{"missing database", map[string]string{
			"STORE_DRIVER": "mongo", "MONGO_HOST": "mongodb+srv://cluster.example.net", "MONGO_DATABASE": "",
		}},
		{"unknown driver", map[string]string{
			"STORE_DRIVER": "oracle",
		}},
		{"bad port", map[string]string{
			"STORE_DRIVER": "memory", "SERVICE_PORT": "not-a-port",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
