package interop

import (
	"strconv"
	"strings"
)

// bridgeJS is the script half of the bridge. It installs the public surface
// (__cs_invoke, __zaInvoke0..8, __registerCallback, __unregisterCallback,
// __releaseHandle, console) and the value codec over two preallocated
// ArrayBuffers shared with Go. Tokens are substituted before evaluation;
// fmt.Sprintf is unusable here because the script itself contains '%'.
//
// Buffer layout mirrors the Go codec: 8-byte header (int32 head word +
// int32 string-region cursor), then 32-byte value slots, then the string
// region. All typed-array views are little-endian on every platform the
// engine builds for.
const bridgeJS = `
(function() {
	var MAX_ARGS = @MAX_ARGS@;
	var MAX_CB = @MAX_CB@;
	var BUF_SIZE = @BUF_SIZE@;
	var EXC_CHARS = @EXC_CHARS@;
	var BIN = @BIN@;

	var T_NULL = 0, T_BOOL = 1, T_INT32 = 2, T_DOUBLE = 3, T_STRING = 4,
		T_HANDLE = 5, T_INT64 = 6, T_FLOAT32 = 7, T_ARRAY = 8, T_JSON = 9,
		T_VEC3 = 10, T_VEC4 = 11;
	var AUX_COLOR = 1, AUX_HINT = 2;

	function mkBuf(nslots) {
		var ab = new ArrayBuffer(BUF_SIZE);
		return {
			ab: ab,
			u8: new Uint8Array(ab),
			i32: new Int32Array(ab),
			f32: new Float32Array(ab),
			f64: new Float64Array(ab),
			strBase: 8 + 32 * nslots
		};
	}
	var A = mkBuf(MAX_ARGS);
	var R = mkBuf(1);
	globalThis.__bridge_args_buf = A.ab;
	globalThis.__bridge_ret_buf = R.ab;

	function utf8Write(B, s) {
		var pos = B.i32[1], limit = BUF_SIZE, start = pos;
		for (var i = 0; i < s.length; i++) {
			if (pos + 4 > limit) throw new RangeError("string does not fit transfer buffer");
			var c = s.charCodeAt(i);
			if (c < 0x80) {
				B.u8[pos++] = c;
			} else if (c < 0x800) {
				B.u8[pos++] = 0xc0 | (c >> 6);
				B.u8[pos++] = 0x80 | (c & 63);
			} else if (c >= 0xd800 && c < 0xdc00 && i + 1 < s.length &&
					s.charCodeAt(i + 1) >= 0xdc00 && s.charCodeAt(i + 1) < 0xe000) {
				var cp = 0x10000 + ((c & 0x3ff) << 10) + (s.charCodeAt(i + 1) & 0x3ff);
				i++;
				B.u8[pos++] = 0xf0 | (cp >> 18);
				B.u8[pos++] = 0x80 | ((cp >> 12) & 63);
				B.u8[pos++] = 0x80 | ((cp >> 6) & 63);
				B.u8[pos++] = 0x80 | (cp & 63);
			} else {
				B.u8[pos++] = 0xe0 | (c >> 12);
				B.u8[pos++] = 0x80 | ((c >> 6) & 63);
				B.u8[pos++] = 0x80 | (c & 63);
			}
		}
		B.i32[1] = pos;
		return start;
	}

	function utf8Read(B, off, n) {
		var parts = [], i = off, end = off + n;
		while (i < end) {
			var c = B.u8[i++];
			if (c < 0x80) {
				parts.push(String.fromCharCode(c));
			} else if (c < 0xe0) {
				parts.push(String.fromCharCode(((c & 31) << 6) | (B.u8[i++] & 63)));
			} else if (c < 0xf0) {
				parts.push(String.fromCharCode(((c & 15) << 12) | ((B.u8[i++] & 63) << 6) | (B.u8[i++] & 63)));
			} else {
				var cp = ((c & 7) << 18) | ((B.u8[i++] & 63) << 12) | ((B.u8[i++] & 63) << 6) | (B.u8[i++] & 63);
				cp -= 0x10000;
				parts.push(String.fromCharCode(0xd800 + (cp >> 10), 0xdc00 + (cp & 0x3ff)));
			}
		}
		return parts.join('');
	}

	// putStr copies s into B's string region and records where it landed
	// in the two payload words starting at i32 index iw.
	function putStr(B, iw, s) {
		var before = B.i32[1];
		var off = utf8Write(B, s);
		B.i32[iw] = off;
		B.i32[iw + 1] = B.i32[1] - before;
	}

	function encodeValue(B, slot, v) {
		var ib = 2 + 8 * slot;
		for (var k = 0; k < 8; k++) B.i32[ib + k] = 0;
		if (v === undefined || v === null) return;
		var t = typeof v;
		if (t === "boolean") {
			B.i32[ib] = T_BOOL;
			B.i32[ib + 2] = v ? 1 : 0;
			return;
		}
		if (t === "number") {
			if (v === (v | 0)) {
				B.i32[ib] = T_INT32;
				B.i32[ib + 2] = v;
			} else {
				B.i32[ib] = T_DOUBLE;
				B.f64[2 + 4 * slot] = v;
			}
			return;
		}
		if (t === "string") {
			B.i32[ib] = T_STRING;
			putStr(B, ib + 2, v);
			return;
		}
		if (t === "function") return;
		if (Array.isArray(v)) {
			B.i32[ib] = T_ARRAY;
			B.i32[ib + 2] = v.length;
			return;
		}
		if (t === "object") {
			if (typeof v.__csHandle === "number") {
				B.i32[ib] = T_HANDLE;
				B.i32[ib + 2] = v.__csHandle | 0;
				if (typeof v.__csType === "string") {
					B.i32[ib + 1] = AUX_HINT;
					putStr(B, ib + 6, v.__csType);
				}
				return;
			}
			var sn = v.__struct || v.__type;
			if (typeof sn === "string") {
				B.i32[ib] = T_STRING;
				putStr(B, ib + 2, JSON.stringify(v));
				B.i32[ib + 1] = AUX_HINT;
				putStr(B, ib + 6, sn);
				return;
			}
			if (typeof v.x === "number" && typeof v.y === "number" && typeof v.z === "number") {
				var fw = ib + 2;
				B.f32[fw] = v.x;
				B.f32[fw + 1] = v.y;
				B.f32[fw + 2] = v.z;
				if (typeof v.w === "number") {
					B.i32[ib] = T_VEC4;
					B.f32[fw + 3] = v.w;
				} else {
					B.i32[ib] = T_VEC3;
				}
				return;
			}
			if (typeof v.r === "number" && typeof v.g === "number" && typeof v.b === "number") {
				var fc = ib + 2;
				B.i32[ib] = T_VEC4;
				B.i32[ib + 1] = AUX_COLOR;
				B.f32[fc] = v.r;
				B.f32[fc + 1] = v.g;
				B.f32[fc + 2] = v.b;
				B.f32[fc + 3] = typeof v.a === "number" ? v.a : 1;
				return;
			}
			try {
				var js = JSON.stringify(v);
				if (typeof js === "string") {
					B.i32[ib] = T_JSON;
					putStr(B, ib + 2, js);
				}
			} catch (e) {
				B.i32[ib] = T_NULL;
			}
			return;
		}
		// bigint, symbol: no mapping, stays null
	}

	// Fast-path encoder: scalars, handles, and vector shapes only.
	// Anything else degrades to null rather than paying for JSON.
	function encodeFast(B, slot, v) {
		var ib = 2 + 8 * slot;
		for (var k = 0; k < 8; k++) B.i32[ib + k] = 0;
		if (v === undefined || v === null) return;
		var t = typeof v;
		if (t === "boolean") {
			B.i32[ib] = T_BOOL;
			B.i32[ib + 2] = v ? 1 : 0;
			return;
		}
		if (t === "number") {
			if (v === (v | 0)) {
				B.i32[ib] = T_INT32;
				B.i32[ib + 2] = v;
			} else {
				B.i32[ib] = T_DOUBLE;
				B.f64[2 + 4 * slot] = v;
			}
			return;
		}
		if (t === "string") {
			B.i32[ib] = T_STRING;
			putStr(B, ib + 2, v);
			return;
		}
		if (t === "object") {
			if (typeof v.__csHandle === "number") {
				B.i32[ib] = T_HANDLE;
				B.i32[ib + 2] = v.__csHandle | 0;
				return;
			}
			if (typeof v.x === "number" && typeof v.y === "number" && typeof v.z === "number") {
				var fw = ib + 2;
				B.f32[fw] = v.x;
				B.f32[fw + 1] = v.y;
				B.f32[fw + 2] = v.z;
				if (typeof v.w === "number") {
					B.i32[ib] = T_VEC4;
					B.f32[fw + 3] = v.w;
				} else {
					B.i32[ib] = T_VEC3;
				}
				return;
			}
			if (typeof v.r === "number" && typeof v.g === "number" && typeof v.b === "number") {
				var fc = ib + 2;
				B.i32[ib] = T_VEC4;
				B.i32[ib + 1] = AUX_COLOR;
				B.f32[fc] = v.r;
				B.f32[fc + 1] = v.g;
				B.f32[fc + 2] = v.b;
				B.f32[fc + 3] = typeof v.a === "number" ? v.a : 1;
				return;
			}
		}
	}

	function deepFreeze(o) {
		if (o !== null && typeof o === "object") {
			var keys = Object.keys(o);
			for (var i = 0; i < keys.length; i++) deepFreeze(o[keys[i]]);
			Object.freeze(o);
		}
		return o;
	}

	function decodeValue(B, slot) {
		var ib = 2 + 8 * slot;
		var tag = B.i32[ib], aux = B.i32[ib + 1];
		switch (tag) {
		case T_NULL:
			return null;
		case T_BOOL:
			return B.i32[ib + 2] !== 0;
		case T_INT32:
			return B.i32[ib + 2];
		case T_DOUBLE:
			return B.f64[2 + 4 * slot];
		case T_FLOAT32:
			return B.f32[ib + 2];
		case T_INT64:
			var lo = B.i32[ib + 2] >>> 0, hi = B.i32[ib + 3];
			return hi * 0x100000000 + lo;
		case T_STRING:
			return utf8Read(B, B.i32[ib + 2], B.i32[ib + 3]);
		case T_JSON:
			return deepFreeze(JSON.parse(utf8Read(B, B.i32[ib + 2], B.i32[ib + 3])));
		case T_HANDLE:
			var h = { __csHandle: B.i32[ib + 2] };
			if (aux & AUX_HINT) h.__csType = utf8Read(B, B.i32[ib + 6], B.i32[ib + 7]);
			return h;
		case T_VEC3:
			return { x: B.f32[ib + 2], y: B.f32[ib + 3], z: B.f32[ib + 4] };
		case T_VEC4:
			if (aux & AUX_COLOR) {
				return { r: B.f32[ib + 2], g: B.f32[ib + 3], b: B.f32[ib + 4], a: B.f32[ib + 5] };
			}
			return { x: B.f32[ib + 2], y: B.f32[ib + 3], z: B.f32[ib + 4], w: B.f32[ib + 5] };
		case T_ARRAY:
			return null;
		default:
			return null;
		}
	}

	function bufToB64(B) {
		var n = B.i32[1];
		if (n < B.strBase || n > BUF_SIZE) n = B.strBase;
		var parts = [];
		for (var i = 0; i < n; i += 4096) {
			parts.push(String.fromCharCode.apply(null, B.u8.subarray(i, Math.min(i + 4096, n))));
		}
		return btoa(parts.join(''));
	}

	function b64Into(B, b64) {
		var raw = atob(b64);
		for (var i = 0; i < raw.length; i++) B.u8[i] = raw.charCodeAt(i);
	}

	function throwForCode(rc) {
		var msg = decodeValue(R, 0);
		if (typeof msg !== "string" || msg === "") msg = "bridge call failed (" + rc + ")";
		if (rc === -2) throw new ReferenceError(msg);
		if (rc === -4) throw new RangeError(msg);
		throw new Error(msg);
	}

	function finishCall(rc) {
		if (rc === 0) return decodeValue(R, 0);
		throwForCode(rc);
	}

	globalThis.__cs_invoke = function(typeName, memberName, kind, isStatic, handle, args) {
		if (args === undefined || args === null) args = [];
		if (!Array.isArray(args)) throw new TypeError("__cs_invoke: arguments must be passed as an array");
		var argc = args.length;
		if (argc > MAX_ARGS) throw new RangeError("too many arguments: " + argc + " (max " + MAX_ARGS + ")");
		A.i32[0] = argc;
		A.i32[1] = A.strBase;
		for (var i = 0; i < argc; i++) encodeValue(A, i, args[i]);
		var rc;
		if (BIN) {
			rc = __bridge_invoke(String(typeName), String(memberName), kind | 0, isStatic ? 1 : 0, handle | 0);
		} else {
			b64Into(R, __bridge_invoke_b64(String(typeName), String(memberName), kind | 0, isStatic ? 1 : 0, handle | 0, bufToB64(A)));
			rc = R.i32[0];
		}
		return finishCall(rc);
	};

	function makeFast(n) {
		return function(id) {
			if (arguments.length - 1 < n) {
				throw new TypeError("binding " + id + " expects " + n + " argument(s), got " + (arguments.length - 1));
			}
			A.i32[0] = n;
			A.i32[1] = A.strBase;
			for (var i = 0; i < n; i++) encodeFast(A, i, arguments[i + 1]);
			var rc;
			if (BIN) {
				rc = __bridge_fast(id | 0);
			} else {
				b64Into(R, __bridge_fast_b64(id | 0, bufToB64(A)));
				rc = R.i32[0];
			}
			return finishCall(rc);
		};
	}
	for (var n = 0; n <= 8; n++) {
		globalThis["__zaInvoke" + n] = makeFast(n);
	}

	// Callback table: dense slot array plus an intrusive free list, so
	// register/unregister are O(1) at any fill level.
	var cbSlots = new Array(MAX_CB);
	var cbFreeNext = new Int32Array(MAX_CB);
	var cbFreeHead = 0;
	var cbCount = 0;
	function cbReset() {
		for (var i = 0; i < MAX_CB; i++) {
			cbSlots[i] = null;
			cbFreeNext[i] = i + 1 < MAX_CB ? i + 1 : -1;
		}
		cbFreeHead = 0;
		cbCount = 0;
	}
	cbReset();

	globalThis.__registerCallback = function(fn) {
		if (typeof fn !== "function") throw new TypeError("__registerCallback expects a function");
		if (cbFreeHead < 0) throw new Error("callback table full (" + MAX_CB + " slots)");
		var slot = cbFreeHead;
		cbFreeHead = cbFreeNext[slot];
		cbSlots[slot] = fn;
		cbCount++;
		return slot;
	};

	globalThis.__unregisterCallback = function(slot) {
		slot = slot | 0;
		if (slot < 0 || slot >= MAX_CB || !cbSlots[slot]) return false;
		cbSlots[slot] = null;
		cbFreeNext[slot] = cbFreeHead;
		cbFreeHead = slot;
		cbCount--;
		return true;
	};

	globalThis.__bridge_cb_count = function() { return cbCount; };
	globalThis.__bridge_cb_clear = function() { cbReset(); return 0; };

	// Truncation backs off a trailing high surrogate so a cut message
	// never carries half a code point into the transfer buffer.
	function clampChars(s, n) {
		if (s.length <= n) return s;
		var c = s.charCodeAt(n - 1);
		if (c >= 0xd800 && c < 0xdc00) n--;
		return s.slice(0, n);
	}

	function formatException(e) {
		var msg;
		if (e instanceof Error) {
			msg = (e.name || "Error") + ": " + (e.message || "");
			if (e.stack) {
				var full = msg + "\n" + e.stack;
				if (full.length <= EXC_CHARS) return full;
			}
		} else {
			msg = String(e);
		}
		return clampChars(msg, EXC_CHARS);
	}

	function writeError(code, msg) {
		R.i32[0] = code;
		R.i32[1] = R.strBase;
		msg = clampChars(String(msg), EXC_CHARS);
		try {
			encodeValue(R, 0, msg);
		} catch (e) {
			R.i32[1] = R.strBase;
			encodeValue(R, 0, "");
		}
	}

	globalThis.__bridge_invoke_cb = function(slot) {
		slot = slot | 0;
		var fn = (slot >= 0 && slot < MAX_CB) ? cbSlots[slot] : null;
		if (!fn) {
			writeError(-3, "no callback registered at slot " + slot);
			return -3;
		}
		var argc = A.i32[0];
		if (argc < 0 || argc > MAX_ARGS) argc = 0;
		var args = [];
		for (var i = 0; i < argc; i++) args.push(decodeValue(A, i));
		var r;
		try {
			r = fn.apply(null, args);
		} catch (e) {
			writeError(-5, formatException(e));
			return -5;
		}
		try {
			R.i32[0] = 0;
			R.i32[1] = R.strBase;
			encodeValue(R, 0, r);
			return 0;
		} catch (e) {
			writeError(-4, "callback result does not fit transfer buffer");
			return -4;
		}
	};

	globalThis.__bridge_invoke_cb_b64 = function(slot, b64) {
		b64Into(A, b64);
		var rc = __bridge_invoke_cb(slot);
		return rc + ":" + bufToB64(R);
	};

	globalThis.__releaseHandle = function(h) {
		h = h | 0;
		if (h > 0) __bridge_release(h);
	};

	globalThis.__bridge_format_job_error = function() {
		var e = globalThis.__bridge_job_exc;
		delete globalThis.__bridge_job_exc;
		return formatException(e);
	};

	var levels = ['log', 'info', 'warn', 'error', 'debug'];
	var con = {};
	for (var li = 0; li < levels.length; li++) {
		(function(lvl) {
			con[lvl] = function() {
				var parts = [];
				for (var j = 0; j < arguments.length; j++) {
					var arg = arguments[j];
					if (typeof arg === 'object' && arg !== null) {
						parts.push('[object Object]');
					} else {
						parts.push(String(arg));
					}
				}
				__bridge_log(lvl, parts.join(' '));
			};
		})(levels[li]);
	}
	globalThis.console = con;
})();
`

// EncodingJS implements global atob() and btoa() as pure JavaScript. A
// pure-JS implementation avoids boundary-crossing issues with binary
// strings containing null bytes; the bridge's base64 fallback transport
// depends on both.
const EncodingJS = `
(function() {
	if (typeof globalThis.btoa === "function" && typeof globalThis.atob === "function") return;
	var _e = 'ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/';
	var _d = new Uint8Array(128);
	for (var i = 0; i < _e.length; i++) _d[_e.charCodeAt(i)] = i;

	globalThis.btoa = function(data) {
		var s = String(data);
		var len = s.length;
		if (len === 0) return '';
		var bytes = new Uint8Array(len);
		for (var i = 0; i < len; i++) {
			var ch = s.charCodeAt(i);
			if (ch > 255) throw new Error("btoa: string contains characters outside of the Latin1 range");
			bytes[i] = ch;
		}
		var out = [];
		for (var i = 0; i < len; i += 3) {
			var a = bytes[i];
			var b = i + 1 < len ? bytes[i + 1] : 0;
			var c = i + 2 < len ? bytes[i + 2] : 0;
			out.push(
				_e[a >> 2],
				_e[((a & 3) << 4) | (b >> 4)],
				i + 1 < len ? _e[((b & 15) << 2) | (c >> 6)] : '=',
				i + 2 < len ? _e[c & 63] : '='
			);
		}
		return out.join('');
	};

	globalThis.atob = function(data) {
		var b64 = String(data).replace(/[\t\n\f\r ]/g, '');
		if (b64.length === 0) return '';
		if (b64.length % 4 === 0 && b64[b64.length - 1] === '=') {
			b64 = b64.slice(0, b64[b64.length - 2] === '=' ? -2 : -1);
		}
		if (b64.length % 4 === 1) throw new Error("atob: invalid base64 string");
		while (b64.length % 4 !== 0) b64 += '=';
		var pad = 0;
		if (b64[b64.length - 1] === '=') pad++;
		if (b64[b64.length - 2] === '=') pad++;
		var outLen = (b64.length / 4) * 3 - pad;
		var bytes = new Uint8Array(outLen);
		var j = 0;
		for (var i = 0; i < b64.length; i += 4) {
			var a = _d[b64.charCodeAt(i)];
			var b = _d[b64.charCodeAt(i + 1)];
			var c = _d[b64.charCodeAt(i + 2)];
			var d = _d[b64.charCodeAt(i + 3)];
			bytes[j++] = (a << 2) | (b >> 4);
			if (j < outLen) bytes[j++] = ((b & 15) << 4) | (c >> 2);
			if (j < outLen) bytes[j++] = ((c & 3) << 6) | d;
		}
		var CHUNK = 4096;
		var parts = [];
		for (var i = 0; i < outLen; i += CHUNK) {
			parts.push(String.fromCharCode.apply(null, bytes.subarray(i, Math.min(i + CHUNK, outLen))));
		}
		return parts.join('');
	};
})();
`

// BridgeScript substitutes the configuration tokens into the bridge glue
// and returns it ready for evaluation.
func BridgeScript(maxArgs, maxCallbacks, bufSize, excChars int, binary bool) string {
	return strings.NewReplacer(
		"@MAX_ARGS@", strconv.Itoa(maxArgs),
		"@MAX_CB@", strconv.Itoa(maxCallbacks),
		"@BUF_SIZE@", strconv.Itoa(bufSize),
		"@EXC_CHARS@", strconv.Itoa(excChars),
		"@BIN@", strconv.FormatBool(binary),
	).Replace(bridgeJS)
}
