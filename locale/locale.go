// Package locale hält alle nutzersichtbaren Texte der API (Bahasa Indonesia).
package locale

import "fmt"

// Key identifiziert einen Text im Katalog.
type Key string

const (
	HealthRunning Key = "health.running"

	ListFailed   Key = "drug.list_failed"
	DrugNotFound Key = "drug.not_found"
	GetFailed    Key = "drug.get_failed"

	SearchQueryEmpty Key = "drug.search.query_empty"
	SearchFailed     Key = "drug.search.failed"

	CreateMissingFields Key = "drug.create.missing_fields"
	CreateConflict      Key = "drug.create.conflict"
	CreateSucceeded     Key = "drug.create.succeeded"
	CreateFailed        Key = "drug.create.failed"

	UpdateNotFound  Key = "drug.update.not_found"
	UpdateConflict  Key = "drug.update.conflict"
	UpdateSucceeded Key = "drug.update.succeeded"
	UpdateFailed    Key = "drug.update.failed"

	DeleteNotFound  Key = "drug.delete.not_found"
	DeleteSucceeded Key = "drug.delete.succeeded"
	DeleteFailed    Key = "drug.delete.failed"

	ImageMissing        Key = "classify.image_missing"
	ImageTypeNotAllowed Key = "classify.image_type"
	ImageTooLarge       Key = "classify.image_too_large"
	UploadError         Key = "classify.upload_error"
	ClassifyFailed      Key = "classify.failed"
	Unrecognized        Key = "classify.unrecognized"

	ClassifierUnreachable Key = "classifier.unreachable"
	ClassifierTimeout     Key = "classifier.timeout"
	ClassifierMessage     Key = "classifier.message"
	ClassifierStatus      Key = "classifier.status"

	InvalidBody      Key = "request.invalid_body"
	InternalError    Key = "server.internal"
	EndpointNotFound Key = "server.endpoint_not_found"
)

var indonesian = map[Key]string{
	HealthRunning: "MEDIVIZE Backend is running",

	ListFailed:   "Gagal mengambil data obat",
	DrugNotFound: "Obat tidak ditemukan",
	GetFailed:    "Gagal mengambil detail obat",

	SearchQueryEmpty: "Query pencarian tidak boleh kosong",
	SearchFailed:     "Gagal mencari obat",

	CreateMissingFields: "Nama, kegunaan, dan dosis obat wajib diisi",
	CreateConflict:      "Obat dengan nama tersebut sudah ada",
	CreateSucceeded:     "Obat berhasil ditambahkan",
	CreateFailed:        "Gagal menambahkan obat",

	UpdateNotFound:  "Obat tidak ditemukan untuk diperbarui",
	UpdateConflict:  "Nama obat baru sudah digunakan oleh obat lain",
	UpdateSucceeded: "Obat berhasil diperbarui",
	UpdateFailed:    "Gagal memperbarui obat",

	DeleteNotFound:  "Obat tidak ditemukan untuk dihapus",
	DeleteSucceeded: "Obat berhasil dihapus",
	DeleteFailed:    "Gagal menghapus obat",

	ImageMissing:        `Gambar tidak ditemukan dalam permintaan. Pastikan field name adalah "image".`,
	ImageTypeNotAllowed: "Hanya file gambar (JPEG, JPG, PNG, WEBP) yang diizinkan",
	ImageTooLarge:       "Ukuran file terlalu besar. Maksimal %dMB.",
	UploadError:         "Kesalahan unggah file: %s",
	ClassifyFailed:      "Gagal memproses gambar secara keseluruhan.",
	Unrecognized:        "Tidak Dikenali",

	ClassifierUnreachable: "Gagal menghubungi layanan deteksi obat (ML API).",
	ClassifierTimeout:     "Koneksi ke layanan deteksi obat (ML API) timeout.",
	ClassifierMessage:     "ML API Error: %s",
	ClassifierStatus:      "ML API Error: Status %d",

	InvalidBody:      "Format permintaan tidak valid",
	InternalError:    "Terjadi kesalahan internal server.",
	EndpointNotFound: "Endpoint tidak ditemukan.",
}

// Text liefert den Text zu key; unbekannte Schlüssel werden unverändert zurückgegeben.
func Text(key Key) string {
	if s, ok := indonesian[key]; ok {
		return s
	}
	return string(key)
}

// Textf formatiert den Text zu key mit args.
func Textf(key Key, args ...any) string {
	return fmt.Sprintf(Text(key), args...)
}
