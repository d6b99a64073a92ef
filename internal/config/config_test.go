package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Core Config Suite")
}

var _ = Describe("Config", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test")
		Expect(err).NotTo(HaveOccurred())
		configFile = filepath.Join(tempDir, "config.yaml")
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("Default", func() {
		It("returns sane defaults", func() {
			cfg := Default()

			Expect(cfg.Database.Host).To(Equal("localhost"))
			Expect(cfg.Database.Port).To(Equal(5432))
			Expect(cfg.ResolutionThresholds.Person.Auto).To(Equal(0.95))
			Expect(cfg.ResolutionThresholds.Address.Auto).To(Equal(0.90))
			Expect(cfg.Retry.MaxAttempts).To(Equal(3))
			Expect(cfg.Derivation.Deadline).To(Equal(4 * time.Hour))
			Expect(cfg.ShellNetwork.MinCompanies).To(Equal(3))
			Expect(cfg.SourceAuthority.Lookup("AUTHORITATIVE_REGISTRY", "DIRECTOR_OF")).To(Equal(0))
			Expect(cfg.SourceAuthority.Lookup("SCRAPE", "DIRECTOR_OF")).To(Equal(2))
		})
	})

	Describe("Load", func() {
		Context("when the config file does not exist", func() {
			It("returns defaults without error", func() {
				cfg, err := Load(filepath.Join(tempDir, "missing.yaml"))
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.ResolutionThresholds.Company.Auto).To(Equal(0.95))
			})
		})

		Context("when the config file overrides thresholds", func() {
			BeforeEach(func() {
				content := `
resolution_thresholds:
  person:
    auto: 0.97
    review_min: 0.65
derivation:
  registration_hub_threshold: 25
shell_network:
  min_companies: 4
`
				Expect(os.WriteFile(configFile, []byte(content), 0644)).To(Succeed())
			})

			It("loads the overridden values and keeps the rest default", func() {
				cfg, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())

				Expect(cfg.ResolutionThresholds.Person.Auto).To(Equal(0.97))
				Expect(cfg.ResolutionThresholds.Person.ReviewMin).To(Equal(0.65))
				Expect(cfg.Derivation.RegistrationHubThreshold).To(Equal(25))
				Expect(cfg.ShellNetwork.MinCompanies).To(Equal(4))
				// untouched sections keep their defaults
				Expect(cfg.ResolutionThresholds.Address.Auto).To(Equal(0.90))
				Expect(cfg.SourceAuthority).NotTo(BeEmpty())
			})
		})

		Context("when DB_* environment variables are set", func() {
			BeforeEach(func() {
				os.Setenv("DB_HOST", "testhost")
				os.Setenv("DB_PORT", "3306")
			})
			AfterEach(func() {
				os.Unsetenv("DB_HOST")
				os.Unsetenv("DB_PORT")
			})

			It("overrides the database config", func() {
				cfg, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Database.Host).To(Equal("testhost"))
				Expect(cfg.Database.Port).To(Equal(3306))
			})
		})
	})

	Describe("Validate", func() {
		It("rejects a threshold table where auto < review_min", func() {
			cfg := Default()
			cfg.ResolutionThresholds.Person.Auto = 0.5
			cfg.ResolutionThresholds.Person.ReviewMin = 0.6
			Expect(cfg.Validate()).To(HaveOccurred())
		})

		It("rejects a zero retry budget", func() {
			cfg := Default()
			cfg.Retry.MaxAttempts = 0
			Expect(cfg.Validate()).To(HaveOccurred())
		})
	})

	Describe("DatabaseConfig.ConnectionString", func() {
		It("omits the password field when empty", func() {
			cfg := DatabaseConfig{Host: "localhost", Port: 5432, User: "u", Database: "d", SSLMode: "disable"}
			Expect(cfg.ConnectionString()).NotTo(ContainSubstring("password="))
		})

		It("includes the password field when set", func() {
			cfg := DatabaseConfig{Host: "localhost", Port: 5432, User: "u", Database: "d", SSLMode: "disable", Password: "secret"}
			Expect(cfg.ConnectionString()).To(ContainSubstring("password=secret"))
		})
	})

	Describe("Watcher", func() {
		BeforeEach(func() {
			Expect(os.WriteFile(configFile, []byte("derivation:\n  registration_hub_threshold: 10\n"), 0644)).To(Succeed())
		})

		It("reloads a new snapshot on file change", func() {
			w, err := NewWatcher(configFile)
			Expect(err).NotTo(HaveOccurred())
			defer w.Close()

			Expect(w.Current().Derivation.RegistrationHubThreshold).To(Equal(10))

			Expect(os.WriteFile(configFile, []byte("derivation:\n  registration_hub_threshold: 20\n"), 0644)).To(Succeed())

			Eventually(func() int {
				return w.Current().Derivation.RegistrationHubThreshold
			}, "2s", "20ms").Should(Equal(20))
		})
	})
})
