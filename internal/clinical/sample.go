package clinical

import "time"

// SampleData returns an in-memory source preloaded with an illustrative
// clinic dataset. It backs local runs until the real record system is
// plugged in, and mirrors the period covered by SampleLedger.
func SampleData() *Memory {
	m := NewMemory()

	d := func(day int, month time.Month, hour int) time.Time {
		return time.Date(2026, month, day, hour, 0, 0, 0, time.UTC)
	}
	birth := func(year int, month time.Month, day int) time.Time {
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}

	lastAna := d(12, time.June, 9)
	lastCarlos := d(3, time.June, 14)
	lastHelena := d(20, time.May, 10)
	lastJoao := d(8, time.April, 11)

	m.AddPatients(
		PatientRow{ID: "pat-001", Name: "Ana Beatriz Rocha", Record: "0001", BirthDate: birth(1989, time.March, 4), Gender: "F", Phone: "+55 11 98888-0001", City: "São Paulo", RegisteredAt: d(5, time.January, 9), ConsultationCount: 4, LastConsultation: &lastAna},
		PatientRow{ID: "pat-002", Name: "Carlos Eduardo Lima", Record: "0002", BirthDate: birth(1954, time.July, 22), Gender: "M", Phone: "+55 11 98888-0002", City: "São Paulo", RegisteredAt: d(9, time.January, 10), ConsultationCount: 3, LastConsultation: &lastCarlos},
		PatientRow{ID: "pat-003", Name: "Helena Martins", Record: "0003", BirthDate: birth(2008, time.November, 15), Gender: "F", Phone: "+55 21 97777-0003", City: "Niterói", RegisteredAt: d(2, time.February, 8), ConsultationCount: 2, LastConsultation: &lastHelena},
		PatientRow{ID: "pat-004", Name: "João Pedro Alves", Record: "0004", BirthDate: birth(1997, time.May, 30), Gender: "M", Phone: "+55 31 96666-0004", City: "Belo Horizonte", RegisteredAt: d(14, time.February, 15), ConsultationCount: 1, LastConsultation: &lastJoao},
		PatientRow{ID: "pat-005", Name: "Márcia Oliveira", Record: "0005", BirthDate: birth(1971, time.January, 8), Gender: "F", Phone: "+55 11 95555-0005", City: "Guarulhos", RegisteredAt: d(3, time.March, 11)},
		PatientRow{ID: "pat-006", Name: "Otávio Nunes", Record: "0006", BirthDate: birth(1948, time.September, 2), Gender: "M", Phone: "+55 11 94444-0006", City: "São Paulo", RegisteredAt: d(21, time.April, 16)},
	)

	m.AddConsultations(
		ConsultationRow{ID: "con-001", PatientID: "pat-001", PatientName: "Ana Beatriz Rocha", PatientRecord: "0001", DoctorID: "dr-souza", DoctorName: "Dra. Fernanda Souza", Date: d(10, time.March, 9), Type: "primeira consulta", Status: ConsultationCompleted, ChiefComplaint: "Cefaleia recorrente", DiagnosisCount: 1, PrescriptionCount: 1},
		ConsultationRow{ID: "con-002", PatientID: "pat-002", PatientName: "Carlos Eduardo Lima", PatientRecord: "0002", DoctorID: "dr-souza", DoctorName: "Dra. Fernanda Souza", Date: d(11, time.March, 10), Type: "retorno", Status: ConsultationCompleted, ChiefComplaint: "Controle pressórico", DiagnosisCount: 1, PrescriptionCount: 2},
		ConsultationRow{ID: "con-003", PatientID: "pat-003", PatientName: "Helena Martins", PatientRecord: "0003", DoctorID: "dr-lima", DoctorName: "Dr. Ricardo Lima", Date: d(18, time.March, 14), Type: "primeira consulta", Status: ConsultationNoShow},
		ConsultationRow{ID: "con-004", PatientID: "pat-001", PatientName: "Ana Beatriz Rocha", PatientRecord: "0001", DoctorID: "dr-souza", DoctorName: "Dra. Fernanda Souza", Date: d(7, time.April, 9), Type: "retorno", Status: ConsultationCompleted, ChiefComplaint: "Reavaliação de cefaleia", DiagnosisCount: 1, PrescriptionCount: 1},
		ConsultationRow{ID: "con-005", PatientID: "pat-004", PatientName: "João Pedro Alves", PatientRecord: "0004", DoctorID: "dr-lima", DoctorName: "Dr. Ricardo Lima", Date: d(8, time.April, 11), Type: "primeira consulta", Status: ConsultationCompleted, ChiefComplaint: "Dor lombar", DiagnosisCount: 1, PrescriptionCount: 1},
		ConsultationRow{ID: "con-006", PatientID: "pat-002", PatientName: "Carlos Eduardo Lima", PatientRecord: "0002", DoctorID: "dr-souza", DoctorName: "Dra. Fernanda Souza", Date: d(15, time.April, 10), Type: "retorno", Status: ConsultationCancelled},
		ConsultationRow{ID: "con-007", PatientID: "pat-003", PatientName: "Helena Martins", PatientRecord: "0003", DoctorID: "dr-lima", DoctorName: "Dr. Ricardo Lima", Date: d(20, time.May, 10), Type: "primeira consulta", Status: ConsultationCompleted, ChiefComplaint: "Crise de asma", DiagnosisCount: 1, PrescriptionCount: 2},
		ConsultationRow{ID: "con-008", PatientID: "pat-002", PatientName: "Carlos Eduardo Lima", PatientRecord: "0002", DoctorID: "dr-souza", DoctorName: "Dra. Fernanda Souza", Date: d(3, time.June, 14), Type: "retorno", Status: ConsultationCompleted, ChiefComplaint: "Ajuste de medicação", DiagnosisCount: 1, PrescriptionCount: 1},
		ConsultationRow{ID: "con-009", PatientID: "pat-001", PatientName: "Ana Beatriz Rocha", PatientRecord: "0001", DoctorID: "dr-souza", DoctorName: "Dra. Fernanda Souza", Date: d(12, time.June, 9), Type: "retorno", Status: ConsultationCompleted, ChiefComplaint: "Alta de acompanhamento"},
		ConsultationRow{ID: "con-010", PatientID: "pat-006", PatientName: "Otávio Nunes", PatientRecord: "0006", DoctorID: "dr-souza", DoctorName: "Dra. Fernanda Souza", Date: d(25, time.June, 16), Type: "primeira consulta", Status: ConsultationScheduled},
	)

	m.AddDiagnoses(
		DiagnosisRow{ID: "dx-001", ConsultationID: "con-001", PatientID: "pat-001", PatientName: "Ana Beatriz Rocha", Code: "G43.0", Description: "Enxaqueca sem aura", Type: "principal", DiagnosedAt: d(10, time.March, 9)},
		DiagnosisRow{ID: "dx-002", ConsultationID: "con-002", PatientID: "pat-002", PatientName: "Carlos Eduardo Lima", Code: "I10", Description: "Hipertensão essencial", Type: "principal", DiagnosedAt: d(11, time.March, 10)},
		DiagnosisRow{ID: "dx-003", ConsultationID: "con-004", PatientID: "pat-001", PatientName: "Ana Beatriz Rocha", Code: "G43.0", Description: "Enxaqueca sem aura", Type: "principal", DiagnosedAt: d(7, time.April, 9)},
		DiagnosisRow{ID: "dx-004", ConsultationID: "con-005", PatientID: "pat-004", PatientName: "João Pedro Alves", Code: "M54.5", Description: "Dor lombar baixa", Type: "principal", DiagnosedAt: d(8, time.April, 11)},
		DiagnosisRow{ID: "dx-005", ConsultationID: "con-007", PatientID: "pat-003", PatientName: "Helena Martins", Code: "J45.0", Description: "Asma predominantemente alérgica", Type: "principal", DiagnosedAt: d(20, time.May, 10)},
		DiagnosisRow{ID: "dx-006", ConsultationID: "con-008", PatientID: "pat-002", PatientName: "Carlos Eduardo Lima", Code: "I10", Description: "Hipertensão essencial", Type: "principal", DiagnosedAt: d(3, time.June, 14)},
		DiagnosisRow{ID: "dx-007", ConsultationID: "con-008", PatientID: "pat-002", PatientName: "Carlos Eduardo Lima", Code: "E78.5", Description: "Hiperlipidemia não especificada", Type: "secundario", DiagnosedAt: d(3, time.June, 14)},
	)

	m.AddPrescriptions(
		PrescriptionRow{ID: "rx-001", ConsultationID: "con-001", PatientID: "pat-001", PatientName: "Ana Beatriz Rocha", Medication: "Sumatriptano", Dosage: "50mg", Frequency: "se crise", Duration: "30 dias", Instructions: "Tomar no início da crise", PrescribedAt: d(10, time.March, 9)},
		PrescriptionRow{ID: "rx-002", ConsultationID: "con-002", PatientID: "pat-002", PatientName: "Carlos Eduardo Lima", Medication: "Losartana", Dosage: "50mg", Frequency: "1x ao dia", Duration: "uso contínuo", PrescribedAt: d(11, time.March, 10)},
		PrescriptionRow{ID: "rx-003", ConsultationID: "con-002", PatientID: "pat-002", PatientName: "Carlos Eduardo Lima", Medication: "Hidroclorotiazida", Dosage: "25mg", Frequency: "1x ao dia", Duration: "uso contínuo", PrescribedAt: d(11, time.March, 10)},
		PrescriptionRow{ID: "rx-004", ConsultationID: "con-004", PatientID: "pat-001", PatientName: "Ana Beatriz Rocha", Medication: "Propranolol", Dosage: "40mg", Frequency: "2x ao dia", Duration: "90 dias", Instructions: "Profilaxia de enxaqueca", PrescribedAt: d(7, time.April, 9)},
		PrescriptionRow{ID: "rx-005", ConsultationID: "con-005", PatientID: "pat-004", PatientName: "João Pedro Alves", Medication: "Ciclobenzaprina", Dosage: "5mg", Frequency: "1x à noite", Duration: "10 dias", PrescribedAt: d(8, time.April, 11)},
		PrescriptionRow{ID: "rx-006", ConsultationID: "con-007", PatientID: "pat-003", PatientName: "Helena Martins", Medication: "Budesonida", Dosage: "200mcg", Frequency: "2x ao dia", Duration: "uso contínuo", PrescribedAt: d(20, time.May, 10)},
		PrescriptionRow{ID: "rx-007", ConsultationID: "con-007", PatientID: "pat-003", PatientName: "Helena Martins", Medication: "Salbutamol", Dosage: "100mcg", Frequency: "se falta de ar", Duration: "uso contínuo", Instructions: "Resgate", PrescribedAt: d(20, time.May, 10)},
		PrescriptionRow{ID: "rx-008", ConsultationID: "con-008", PatientID: "pat-002", PatientName: "Carlos Eduardo Lima", Medication: "Rosuvastatina", Dosage: "10mg", Frequency: "1x ao dia", Duration: "uso contínuo", PrescribedAt: d(3, time.June, 14)},
	)

	return m
}
