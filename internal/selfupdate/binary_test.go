package selfupdate_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openuo/uolaunch/internal/selfupdate"
)

// makeTarGz writes a .tar.gz with the given (name, content) entries.
func makeTarGz(path string, entries map[string]string) {
	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for name, content := range entries {
		Expect(tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o755,
			Size:     int64(len(content)),
		})).To(Succeed())

		_, err := tw.Write([]byte(content))
		Expect(err).NotTo(HaveOccurred())
	}

	Expect(tw.Close()).To(Succeed())
	Expect(gz.Close()).To(Succeed())
	Expect(os.WriteFile(path, buf.Bytes(), 0o644)).To(Succeed())
}

// makeZip writes a .zip with the given (name, content) entries.
func makeZip(path string, entries map[string]string) {
	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for name, content := range entries {
		w, err := zw.Create(name)
		Expect(err).NotTo(HaveOccurred())

		_, err = w.Write([]byte(content))
		Expect(err).NotTo(HaveOccurred())
	}

	Expect(zw.Close()).To(Succeed())
	Expect(os.WriteFile(path, buf.Bytes(), 0o644)).To(Succeed())
}

var _ = Describe("ExtractBinary", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Context("from a tar.gz archive", func() {
		platform := selfupdate.Platform{OS: "linux", Arch: "amd64"}

		It("extracts the binary at any path depth", func() {
			archive := filepath.Join(dir, "release.tar.gz")
			makeTarGz(archive, map[string]string{
				"dist/uolaunch": "binary-bytes",
				"README.md":     "docs",
			})

			path, cleanup, err := selfupdate.ExtractBinary(archive, platform)

			Expect(err).NotTo(HaveOccurred())
			defer cleanup()

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("binary-bytes"))

			info, err := os.Stat(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm() & 0o100).NotTo(BeZero())
		})

		It("errors when the binary is absent", func() {
			archive := filepath.Join(dir, "release.tar.gz")
			makeTarGz(archive, map[string]string{"README.md": "docs"})

			_, _, err := selfupdate.ExtractBinary(archive, platform)

			Expect(err).To(MatchError(ContainSubstring("not found")))
		})
	})

	Context("from a zip archive", func() {
		platform := selfupdate.Platform{OS: "windows", Arch: "amd64"}

		It("extracts the .exe variant", func() {
			archive := filepath.Join(dir, "release.zip")
			makeZip(archive, map[string]string{
				"uolaunch.exe": "exe-bytes",
			})

			path, cleanup, err := selfupdate.ExtractBinary(archive, platform)

			Expect(err).NotTo(HaveOccurred())
			defer cleanup()

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("exe-bytes"))
		})
	})
})

var _ = Describe("ReplaceBinary", func() {
	It("replaces the target preserving its mode", func() {
		dir := GinkgoT().TempDir()
		target := filepath.Join(dir, "uolaunch")
		replacement := filepath.Join(dir, "new-uolaunch")

		Expect(os.WriteFile(target, []byte("old"), 0o755)).To(Succeed())
		Expect(os.WriteFile(replacement, []byte("new"), 0o644)).To(Succeed())

		Expect(selfupdate.ReplaceBinary(replacement, target)).To(Succeed())

		data, err := os.ReadFile(target)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("new"))

		info, err := os.Stat(target)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o755)))
	})

	It("errors when the target does not exist", func() {
		dir := GinkgoT().TempDir()
		replacement := filepath.Join(dir, "new-uolaunch")
		Expect(os.WriteFile(replacement, []byte("new"), 0o644)).To(Succeed())

		err := selfupdate.ReplaceBinary(replacement, filepath.Join(dir, "missing"))

		Expect(err).To(MatchError(ContainSubstring("stat target binary")))
	})
})

var _ = Describe("CheckWritable", func() {
	It("accepts a binary in a writable directory", func() {
		dir := GinkgoT().TempDir()
		binary := filepath.Join(dir, "uolaunch")
		Expect(os.WriteFile(binary, []byte("bin"), 0o755)).To(Succeed())

		Expect(selfupdate.CheckWritable(binary)).To(Succeed())
	})

	It("rejects a binary in a read-only directory", func() {
		if os.Geteuid() == 0 {
			Skip("root ignores directory permissions")
		}

		dir := GinkgoT().TempDir()
		sub := filepath.Join(dir, "readonly")
		Expect(os.Mkdir(sub, 0o555)).To(Succeed())
		DeferCleanup(func() { _ = os.Chmod(sub, 0o755) })

		err := selfupdate.CheckWritable(filepath.Join(sub, "uolaunch"))

		Expect(err).To(MatchError(ContainSubstring("not writable")))
	})
})
