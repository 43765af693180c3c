package models

// DeviceInfo describes one published display node.
type DeviceInfo struct {
	Name        string   `json:"name" example:"sevenseg" doc:"Node name"`
	Class       string   `json:"class" example:"sevenseg" doc:"Device class"`
	Dev         string   `json:"dev" example:"254:0" doc:"Major and minor number"`
	State       string   `json:"state,omitempty" example:"attached" doc:"Lifecycle state"`
	Driver      string   `json:"driver,omitempty" example:"periph" doc:"GPIO allocator"`
	Lines       []string `json:"lines,omitempty" doc:"Segment lines, segment a first"`
	Digit       *int     `json:"digit,omitempty" example:"7" doc:"Digit currently shown"`
	Attributes  []string `json:"attributes" doc:"Published attribute names"`
	OpenHandles int      `json:"open_handles" example:"0" doc:"Open stream handles"`
}

type DeviceListData struct {
	Devices []DeviceInfo `json:"devices" doc:"Published display nodes"`
	Count   int          `json:"count" example:"1" doc:"Number of nodes"`
}

type DeviceListResponse struct {
	Body DeviceListData
}

// Handle models
type HandleData struct {
	Node     string `json:"node" example:"sevenseg" doc:"Node name"`
	Handle   string `json:"handle" example:"0b6f3a52-8d1e-4f7e-9a58-0e3c9d2f1b7a" doc:"Open handle id"`
	Position int64  `json:"position" example:"0" doc:"Current file position"`
}

type HandleResponse struct {
	Body HandleData
}

type ReadData struct {
	Data     []byte `json:"data" doc:"Bytes read, base64 encoded"`
	Text     string `json:"text" example:"7\n" doc:"Bytes read as text"`
	Count    int    `json:"count" example:"2" doc:"Number of bytes read"`
	EOF      bool   `json:"eof" example:"false" doc:"Whether the read hit end of file"`
	Position int64  `json:"position" example:"2" doc:"File position after the read"`
}

type ReadResponse struct {
	Body ReadData
}

type WriteData struct {
	Count    int   `json:"count" example:"1" doc:"Number of bytes consumed"`
	Position int64 `json:"position" example:"0" doc:"File position after the write"`
}

type WriteResponse struct {
	Body WriteData
}

type SeekRequestData struct {
	Offset int64 `json:"offset" example:"0" doc:"Offset relative to whence"`
	Whence int   `json:"whence,omitempty" enum:"0,1,2" example:"0" doc:"0 = start, 1 = current, 2 = end"`
}

// Attribute models
type AttributeStoreData struct {
	Count int `json:"count" example:"2" doc:"Number of bytes consumed"`
}

type AttributeStoreResponse struct {
	Body AttributeStoreData
}
