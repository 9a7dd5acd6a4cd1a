package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arclightning/arclight/config"
	"github.com/arclightning/arclight/password"
)

const cliConfig = `listen_port = 8080
static_dir = "static"

[games.touhou_123]
name = "Touhou"
genres = ["bullet hell", "anime"]
exe_path = "games/touhou/th123.exe"
exe_args = ["-windowed"]
`

var _ = Describe("CLI", func() {
	var cfg config.Config

	BeforeEach(func() {
		path := filepath.Join(GinkgoT().TempDir(), "server_config.toml")
		Expect(os.WriteFile(path, []byte(cliConfig), 0o600)).To(Succeed())
		cfg = config.Config{ConfigFile: path, BcryptCost: password.DefaultCost}
	})

	Describe("set-password", func() {
		It("stores a hash of the entered password", func() {
			var out bytes.Buffer
			Expect(setPassword(cfg, strings.NewReader("hunter2\nhunter2\n"), &out)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Password updated"))

			file, err := config.DecodeFile(cfg.ConfigFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(file.Password).NotTo(ContainSubstring("hunter2"))
			ok, err := password.Verify("hunter2", file.Password)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("keeps the rest of the file", func() {
			Expect(setPassword(cfg, strings.NewReader("pw\npw"), &bytes.Buffer{})).To(Succeed())

			file, err := config.DecodeFile(cfg.ConfigFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(file.StaticDir).To(Equal("static"))
			Expect(file.Games["touhou_123"].ExePath).To(Equal("games/touhou/th123.exe"))
		})

		It("refuses mismatched passwords and leaves the file alone", func() {
			err := setPassword(cfg, strings.NewReader("one\ntwo\n"), &bytes.Buffer{})
			Expect(err).To(MatchError(errPasswordMismatch))

			file, err := config.DecodeFile(cfg.ConfigFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(file.Password).To(BeEmpty())
		})

		It("refuses an empty password", func() {
			Expect(setPassword(cfg, strings.NewReader("\n\n"), &bytes.Buffer{})).To(MatchError(errEmptyPassword))
		})

		It("fails when input ends early", func() {
			Expect(setPassword(cfg, strings.NewReader("only-once\n"), &bytes.Buffer{})).To(HaveOccurred())
		})
	})

	Describe("games", func() {
		It("prints every game", func() {
			var out bytes.Buffer
			Expect(listGames(cfg, "", &out)).To(Succeed())

			Expect(out.String()).To(ContainSubstring("touhou_123"))
			Expect(out.String()).To(ContainSubstring("bullet hell, anime"))
			Expect(out.String()).To(ContainSubstring("-windowed"))
			Expect(out.String()).To(ContainSubstring("missing"))
			Expect(out.String()).To(ContainSubstring("1 game(s)"))
		})

		It("suggests a close id for a typo", func() {
			err := listGames(cfg, "touhou_12", &bytes.Buffer{})
			Expect(err).To(MatchError(ContainSubstring(`did you mean "touhou_123"`)))
		})

		It("does not suggest far-off ids", func() {
			err := listGames(cfg, "melty_blood", &bytes.Buffer{})
			Expect(err).To(MatchError(ContainSubstring("no game")))
			Expect(err.Error()).NotTo(ContainSubstring("did you mean"))
		})
	})
})
